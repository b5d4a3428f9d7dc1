// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/armatrix/orchestra-go/llm"
)

// ErrExhausted is returned once every scripted step has been consumed.
var ErrExhausted = errors.New("llmtest: no more scripted responses")

// Step is one scripted reply. Exactly one of Response, Err or Func is used,
// checked in that order of precedence: Func, Err, Response.
type Step struct {
	Response *llm.Response
	Err      error
	Func     func(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Client replays Steps in order and records every request. It is safe for
// concurrent use.
type Client struct {
	mu       sync.Mutex
	steps    []Step
	requests []*llm.Request

	// Fallback, when set, answers requests after the script is exhausted.
	Fallback func(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// New creates a client that replays steps.
func New(steps ...Step) *Client {
	return &Client{steps: steps}
}

// Text is a Step answering with plain text and an end_turn stop.
func Text(content string) Step {
	return Step{Response: &llm.Response{Content: content, StopReason: llm.StopEndTurn, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}}}
}

// ToolCalls is a Step requesting the given tools.
func ToolCalls(content string, calls ...llm.ToolCall) Step {
	return Step{Response: &llm.Response{Content: content, ToolCalls: calls, StopReason: llm.StopToolUse, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}}}
}

// Fail is a Step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return c.next(ctx, req)
}

// Stream implements llm.Client. The whole content is delivered as one delta.
func (c *Client) Stream(ctx context.Context, req *llm.Request, onDelta func(string)) (*llm.Response, error) {
	resp, err := c.next(ctx, req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil && resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp, nil
}

func (c *Client) next(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.requests = append(c.requests, cloneRequest(req))
	var (
		step Step
		ok   bool
	)
	if len(c.steps) > 0 {
		step, c.steps, ok = c.steps[0], c.steps[1:], true
	}
	fallback := c.Fallback
	c.mu.Unlock()

	if !ok {
		if fallback != nil {
			return fallback(ctx, req)
		}
		return nil, ErrExhausted
	}
	switch {
	case step.Func != nil:
		return step.Func(ctx, req)
	case step.Err != nil:
		return nil, step.Err
	}
	resp := *step.Response
	if resp.Usage.Model == "" {
		resp.Usage.Model = req.Model.Model
	}
	return &resp, nil
}

// Requests returns a copy of every request received so far.
func (c *Client) Requests() []*llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*llm.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Calls returns the number of requests received.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func cloneRequest(req *llm.Request) *llm.Request {
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	cp.Tools = append([]llm.ToolDefinition(nil), req.Tools...)
	return &cp
}
