// Package llm defines the inference collaborator used by the decomposer,
// the agent runner and the synthesis engine, plus an Anthropic-backed
// implementation.
//
// The contract is deliberately provider-neutral: a Request carries a system
// prompt, a message history, optional tool definitions and a model
// configuration; a Response carries the assistant text, any tool calls and
// token usage.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoProvider is returned when an operation needs inference but no client
// was configured.
var ErrNoProvider = errors.New("llm: no inference provider configured")

// Role identifies the author of a message in a conversation history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of a tool call fed back to the model.
	RoleTool Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Message is one entry of a conversation history.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall

	// ToolCallID and IsError are set on RoleTool messages.
	ToolCallID string
	IsError    bool
}

// UserMessage returns a user message with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage returns an assistant message, optionally with tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResultMessage returns the result of a tool call.
func ToolResultMessage(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, IsError: isError}
}

// Schema is the JSON Schema of a tool's input object.
type Schema struct {
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema Schema
}

// ModelConfig selects the model and sampling parameters for a request.
// Zero values defer to the client's defaults.
type ModelConfig struct {
	Provider    string
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Merge returns c with every non-zero field of override applied on top.
func (c ModelConfig) Merge(override ModelConfig) ModelConfig {
	if override.Provider != "" {
		c.Provider = override.Provider
	}
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.Temperature != nil {
		t := *override.Temperature
		c.Temperature = &t
	}
	if override.MaxTokens > 0 {
		c.MaxTokens = override.MaxTokens
	}
	return c
}

// Temperature is a helper for building ModelConfig literals.
func Temperature(t float64) *float64 { return &t }

// Request is a single inference call.
type Request struct {
	Model    ModelConfig
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// StopReason reports why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Usage is the token consumption of one or more inference calls.
type Usage struct {
	Model            string
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Add accumulates other into u. The model of u is kept unless empty.
func (u *Usage) Add(other Usage) {
	if u.Model == "" {
		u.Model = other.Model
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheWriteTokens += other.CacheWriteTokens
}

// Response is the outcome of an inference call.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason StopReason
	Usage      Usage
}

// Client is the inference collaborator.
//
// Implementations must honor ctx cancellation for in-flight calls.
type Client interface {
	// Complete runs a request and returns the full response.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream runs a request, invoking onDelta for each text fragment as it
	// arrives, and returns the accumulated response.
	Stream(ctx context.Context, req *Request, onDelta func(string)) (*Response, error)
}
