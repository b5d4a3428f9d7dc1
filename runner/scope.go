package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/permission"
	"github.com/armatrix/orchestra-go/tools"
)

// DefaultMaxTurns is the turn budget when a scope sets none.
const DefaultMaxTurns = 15

// Scope holds per-run overrides.
type Scope struct {
	// MaxTurns of zero means DefaultMaxTurns. The budget is at least one.
	MaxTurns int

	// Tier picks a model from Config.Tiers.
	Tier llm.Tier

	// Model fields override everything else that resolves the model.
	Model llm.ModelConfig

	AllowedTools []string
	DeniedTools  []string
}

func (s Scope) turnBudget() int {
	n := s.MaxTurns
	if n == 0 {
		n = DefaultMaxTurns
	}
	return max(1, n)
}

// ToolExecutor is the tool-executor collaborator. *tools.Registry
// implements it.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name string, input json.RawMessage) (*tools.Result, error)
}

// filteredTools exposes only the tools a policy chain admits.
type filteredTools struct {
	inner   ToolExecutor
	defs    []llm.ToolDefinition
	allowed map[string]bool
}

func filterTools(exec ToolExecutor, chain permission.Chain) *filteredTools {
	f := &filteredTools{inner: exec, allowed: make(map[string]bool)}
	if exec == nil {
		return f
	}
	for _, def := range exec.Definitions() {
		if chain.Check(def.Name) == permission.Allow {
			f.defs = append(f.defs, def)
			f.allowed[def.Name] = true
		}
	}
	return f
}

func (f *filteredTools) Definitions() []llm.ToolDefinition { return f.defs }

func (f *filteredTools) Execute(ctx context.Context, name string, input json.RawMessage) (*tools.Result, error) {
	if !f.allowed[name] {
		return nil, fmt.Errorf("tool %q is not available to this agent", name)
	}
	return f.inner.Execute(ctx, name, input)
}
