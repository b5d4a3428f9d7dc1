package decompose

import (
	"github.com/armatrix/orchestra-go/llm"
)

// Complexity grades a planned task.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// ExecutionMode selects how an agent runs a task.
type ExecutionMode string

const (
	// ModeSingleShot is one streamed completion without tools.
	ModeSingleShot ExecutionMode = "single-shot"
	// ModeIterative is the tool-using agent loop.
	ModeIterative ExecutionMode = "iterative"
)

// Strategy tells the scheduler how to run the plan.
type Strategy string

const (
	StrategySingleAgent      Strategy = "single_agent"
	StrategySequential       Strategy = "sequential_agents"
	StrategyParallel         Strategy = "parallel_agents"
	StrategyParallelIsolated Strategy = "parallel_isolated"
	StrategyIterativeDeep    Strategy = "iterative_deep"
)

// Source records which path produced a plan.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
)

// IOInput names a value a task consumes and the task producing it.
type IOInput struct {
	Name string `json:"name" jsonschema:"required"`
	From string `json:"from,omitempty" jsonschema:"description=ID of the producing task"`
}

// IOContract documents the data flowing into and out of a task. Readiness is
// decided by Dependencies alone.
type IOContract struct {
	Inputs  []IOInput `json:"inputs,omitempty"`
	Outputs []string  `json:"outputs,omitempty"`
}

// AgentScope bounds a suggested agent.
type AgentScope struct {
	MaxTurns     int      `json:"maxTurns,omitempty" jsonschema:"description=Maximum reasoning turns"`
	AllowedTools []string `json:"allowedTools,omitempty"`
	DeniedTools  []string `json:"deniedTools,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// Persona is the agent suggested for a task.
type Persona struct {
	Name           string      `json:"name" jsonschema:"required,description=Short persona name such as Researcher"`
	Role           string      `json:"role" jsonschema:"required"`
	Skills         []string    `json:"skills,omitempty"`
	Specialization string      `json:"specialization,omitempty"`
	Scope          *AgentScope `json:"scope,omitempty"`
}

// DecomposedTask is one node of a plan. ID and Dependencies are local to the
// plan.
type DecomposedTask struct {
	ID             string        `json:"id" jsonschema:"required,description=Plan-local id such as t1"`
	Title          string        `json:"title" jsonschema:"required"`
	Description    string        `json:"description" jsonschema:"required,description=Self-contained instructions for the agent"`
	Complexity     Complexity    `json:"complexity" jsonschema:"enum=simple,enum=complex"`
	Dependencies   []string      `json:"dependencies" jsonschema:"description=IDs of tasks that must complete first"`
	Parallelizable bool          `json:"parallelizable"`
	IOContract     IOContract    `json:"ioContract"`
	ExecutionMode  ExecutionMode `json:"executionMode" jsonschema:"enum=single-shot,enum=iterative"`
	ModelTier      llm.Tier      `json:"modelTier" jsonschema:"enum=fast,enum=balanced,enum=powerful"`
	Requirements   []string      `json:"requirements,omitempty"`
	SuggestedAgent Persona       `json:"suggestedAgent"`
}

// TaskDecomposition is a validated plan for one request.
type TaskDecomposition struct {
	MainTitle         string           `json:"mainTitle" jsonschema:"required"`
	MainDescription   string           `json:"mainDescription"`
	Tasks             []DecomposedTask `json:"tasks" jsonschema:"required"`
	RequiresSynthesis bool             `json:"requiresSynthesis" jsonschema:"description=True when the final answer must merge several task outputs"`
	Strategy          Strategy         `json:"strategy" jsonschema:"enum=single_agent,enum=sequential_agents,enum=parallel_agents,enum=parallel_isolated,enum=iterative_deep"`
	EstimatedDuration string           `json:"estimatedDuration,omitempty"`

	Source         Source    `json:"-"`
	FallbackReason string    `json:"-"`
	Usage          llm.Usage `json:"-"`
}

// Task returns the node with the given plan-local id.
func (d *TaskDecomposition) Task(id string) (DecomposedTask, bool) {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return DecomposedTask{}, false
}

// SinkTasks returns the nodes no other node depends on, in plan order.
func (d *TaskDecomposition) SinkTasks() []DecomposedTask {
	depended := make(map[string]bool)
	for _, t := range d.Tasks {
		for _, dep := range t.Dependencies {
			depended[dep] = true
		}
	}
	var sinks []DecomposedTask
	for _, t := range d.Tasks {
		if !depended[t.ID] {
			sinks = append(sinks, t)
		}
	}
	return sinks
}

// TopologicalOrder returns the nodes with every node after its dependencies.
// Among ready nodes plan order is kept.
func (d *TaskDecomposition) TopologicalOrder() ([]DecomposedTask, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(d.Tasks))
	out := make([]DecomposedTask, 0, len(d.Tasks))
	for len(out) < len(d.Tasks) {
		for _, t := range d.Tasks {
			if done[t.ID] {
				continue
			}
			ready := true
			for _, dep := range t.Dependencies {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				done[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}
