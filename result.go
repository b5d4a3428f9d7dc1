package orchestra

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/teams"
)

// TaskResult is the final state of one task.
type TaskResult struct {
	ID        string
	PlanID    string
	Title     string
	Status    teams.TaskStatus
	AgentID   string
	AgentName string
	Output    string
	Error     string
	Attempts  int
	Turns     int
	Cancelled bool
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Prompt string
	Plan   *decompose.TaskDecomposition
	Team   *teams.Team

	// Content is the deliverable.
	Content string
	// Success is true when every task completed and Content is non-empty.
	Success bool
	// Synthesized reports whether Content came from a synthesis pass.
	Synthesized bool
	Cancelled   bool
	Warnings    []string

	Tasks  []TaskResult
	Counts teams.TaskCounts

	Usage    llm.Usage
	Cost     decimal.Decimal
	Duration time.Duration
}

// Task returns the result of the task created from the given plan node id.
func (r *Result) Task(planID string) (TaskResult, bool) {
	for _, t := range r.Tasks {
		if t.PlanID == planID {
			return t, true
		}
	}
	return TaskResult{}, false
}
