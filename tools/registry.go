package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/armatrix/orchestra-go/internal/schema"
	"github.com/armatrix/orchestra-go/llm"
)

// ErrToolNotFound is returned by Execute for unknown tool names.
var ErrToolNotFound = errors.New("tools: tool not found")

// Tool is the generic interface for agent tools. The type parameter T defines
// the input struct decoded from the model's JSON arguments.
type Tool[T any] interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input T) (*Result, error)
}

// Result is the output of a tool execution.
type Result struct {
	Content string
	IsError bool
}

// TextResult is a convenience constructor for a successful result.
func TextResult(text string) *Result {
	return &Result{Content: text}
}

// ErrorResult is a convenience constructor for a failed result.
func ErrorResult(text string) *Result {
	return &Result{Content: text, IsError: true}
}

// Handler executes a tool from its raw JSON input.
type Handler func(ctx context.Context, input json.RawMessage) (*Result, error)

type toolEntry struct {
	def     llm.ToolDefinition
	execute Handler
}

// Registry manages registered tools. It is concurrent-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*toolEntry
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*toolEntry)}
}

// Register adds a typed tool. The input schema is generated from T; inputs
// missing a required field or failing to decode into T are rejected with an
// error result before the tool runs.
func Register[T any](r *Registry, tool Tool[T]) {
	s := schema.Generate[T]()
	r.RegisterRaw(tool.Name(), tool.Description(), s, func(ctx context.Context, raw json.RawMessage) (*Result, error) {
		if res := checkRequired(raw, s.Required); res != nil {
			return res, nil
		}
		var input T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &input); err != nil {
				return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
			}
		}
		return tool.Execute(ctx, input)
	})
}

// RegisterRaw adds a tool with a pre-built schema and handler. Registering an
// existing name replaces the tool in place.
func (r *Registry) RegisterRaw(name, description string, inputSchema llm.Schema, execute Handler) {
	entry := &toolEntry{
		def: llm.ToolDefinition{
			Name:        name,
			Description: description,
			InputSchema: inputSchema,
		},
		execute: execute,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = entry
}

// Execute runs a tool by name with the given raw JSON input.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (*Result, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return entry.execute(ctx, input)
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Names returns the names of all registered tools in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clone returns an independent registry with the same tools, so per-agent
// tools can be added without touching the shared one.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := &Registry{
		tools: make(map[string]*toolEntry, len(r.tools)),
		order: make([]string, len(r.order)),
	}
	copy(cp.order, r.order)
	for k, v := range r.tools {
		cp.tools[k] = v
	}
	return cp
}

func checkRequired(raw json.RawMessage, required []string) *Result {
	if len(required) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error()))
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return ErrorResult(fmt.Sprintf("invalid input: missing required field %q", name))
		}
	}
	return nil
}
