package teams

import (
	"errors"
	"time"
)

// Sentinel errors returned by the task list.
var (
	ErrTaskNotFound      = errors.New("teams: task not found")
	ErrDuplicateTask     = errors.New("teams: duplicate task id")
	ErrUnknownDependency = errors.New("teams: unknown dependency")
	ErrInvalidTransition = errors.New("teams: invalid task transition")
)

// TaskStatus is the lifecycle state of a task. A pending task whose
// dependencies are not all completed is blocked; that state is derived, not
// stored.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether s is completed or failed.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AgentHints describe the teammate best suited for a task.
type AgentHints struct {
	RequiredSkills []string
	Role           string
	Specialization string
}

// Task is a unit of work in the shared task list.
type Task struct {
	ID           string
	Title        string
	Description  string
	Requirements []string
	Status       TaskStatus
	DependsOn    []string
	Hints        AgentHints

	ClaimedBy   string
	ClaimedAt   time.Time
	CompletedAt time.Time
	CreatedAt   time.Time

	// Output is set on completion, Error on failure.
	Output string
	Error  string
}

// TaskInput is the data needed to create a task. ID is optional; when empty
// one is generated.
type TaskInput struct {
	ID           string
	Title        string
	Description  string
	Requirements []string
	DependsOn    []string
	Hints        AgentHints
}

func (t *Task) clone() *Task {
	cp := *t
	cp.Requirements = cloneStrings(t.Requirements)
	cp.DependsOn = cloneStrings(t.DependsOn)
	cp.Hints.RequiredSkills = cloneStrings(t.Hints.RequiredSkills)
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// TaskCounts summarizes a task list by status.
type TaskCounts struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
}
