package orchestra

import (
	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/runner"
	"github.com/armatrix/orchestra-go/synthesis"
	"github.com/armatrix/orchestra-go/teams"
)

// EventType identifies the kind of event emitted by a RunStream.
type EventType string

const (
	EventPlan         EventType = "plan"
	EventTeam         EventType = "team"
	EventTaskStart    EventType = "task_start"
	EventTaskProgress EventType = "task_progress"
	EventTaskStream   EventType = "task_stream"
	EventTaskDone     EventType = "task_done"
	EventSynthesis    EventType = "synthesis"
	EventResult       EventType = "result"
)

// Event is the interface implemented by all events emitted through RunStream.
type Event interface {
	Type() EventType
}

// PlanEvent is emitted once the request has been decomposed.
type PlanEvent struct {
	RunID string
	Plan  *decompose.TaskDecomposition
}

func (e *PlanEvent) Type() EventType { return EventPlan }

// TeamEvent forwards task list and mailbox events.
type TeamEvent struct {
	Event teams.Event
}

func (e *TeamEvent) Type() EventType { return EventTeam }

// TaskStartEvent is emitted when an agent starts an attempt at a task.
type TaskStartEvent struct {
	TaskID    string
	Title     string
	AgentID   string
	AgentName string
	Attempt   int
	Mode      decompose.ExecutionMode
}

func (e *TaskStartEvent) Type() EventType { return EventTaskStart }

// TaskProgressEvent is emitted after every agent turn.
type TaskProgressEvent struct {
	TaskID   string
	Progress runner.Progress
}

func (e *TaskProgressEvent) Type() EventType { return EventTaskProgress }

// TaskStreamEvent carries incremental response text of a task.
type TaskStreamEvent struct {
	TaskID string
	Delta  string
}

func (e *TaskStreamEvent) Type() EventType { return EventTaskStream }

// TaskDoneEvent is emitted when a task reaches a terminal state.
type TaskDoneEvent struct {
	TaskID string
	Title  string
	Status teams.TaskStatus
	// Result is nil for tasks failed without running.
	Result *runner.Result
	Error  string
}

func (e *TaskDoneEvent) Type() EventType { return EventTaskDone }

// SynthesisEvent is emitted after task outputs have been merged.
type SynthesisEvent struct {
	Result *synthesis.Result
}

func (e *SynthesisEvent) Type() EventType { return EventSynthesis }

// ResultEvent is emitted once at the end of a run.
type ResultEvent struct {
	Result *Result
}

func (e *ResultEvent) Type() EventType { return EventResult }
