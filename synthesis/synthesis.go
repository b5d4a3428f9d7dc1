// Package synthesis merges the outputs of several tasks into one deliverable.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/llm"
)

const systemPrompt = `You combine the work of several specialist agents into a single deliverable that answers the user's original request.

- Resolve contradictions between the inputs. Prefer the better supported claim.
- Remove redundancy.
- Preserve every substantive finding from every input.
- Produce one well-structured document with headings where they help.
- Do not mention the agents, the sub-tasks or the fact that this is a synthesis.`

// TaskOutput is the result of one completed task.
type TaskOutput struct {
	TaskID  string
	Title   string
	Content string
}

func (o TaskOutput) heading(i int) string {
	switch {
	case o.Title != "":
		return o.Title
	case o.TaskID != "":
		return o.TaskID
	default:
		return fmt.Sprintf("Result %d", i+1)
	}
}

// Result is the synthesized deliverable. Content is always usable; Success
// is false when the merge pass was skipped or failed.
type Result struct {
	Content  string
	Success  bool
	Warnings []string
	Usage    llm.Usage
}

// Config configures an Engine.
type Config struct {
	Model  llm.ModelConfig
	Logger *zap.Logger
}

// Engine runs the synthesis pass.
type Engine struct {
	client llm.Client
	cfg    Config
	log    *zap.Logger
}

// New creates an Engine. A nil client makes every multi-output synthesis fall
// back to Merge.
func New(client llm.Client, cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{client: client, cfg: cfg, log: log.Named("synthesis")}
}

// Synthesize merges outputs into one answer to prompt.
func (e *Engine) Synthesize(ctx context.Context, prompt string, outputs []TaskOutput) *Result {
	return e.Stream(ctx, prompt, outputs, nil)
}

// Stream is Synthesize with incremental delivery of the merged text.
func (e *Engine) Stream(ctx context.Context, prompt string, outputs []TaskOutput, onDelta func(string)) *Result {
	switch len(outputs) {
	case 0:
		return &Result{Warnings: []string{"no task outputs to synthesize"}}
	case 1:
		return &Result{Content: outputs[0].Content, Success: true}
	}

	if e.client == nil {
		return e.fallback(outputs, llm.ErrNoProvider)
	}

	req := &llm.Request{
		Model:    e.cfg.Model,
		System:   systemPrompt,
		Messages: []llm.Message{llm.UserMessage(userPrompt(prompt, outputs))},
	}
	var (
		resp *llm.Response
		err  error
	)
	if onDelta != nil {
		resp, err = e.client.Stream(ctx, req, onDelta)
	} else {
		resp, err = e.client.Complete(ctx, req)
	}
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		res := e.fallback(outputs, err)
		if resp != nil {
			res.Usage = resp.Usage
		}
		return res
	}
	return &Result{Content: resp.Content, Success: true, Usage: resp.Usage}
}

func (e *Engine) fallback(outputs []TaskOutput, err error) *Result {
	e.log.Warn("synthesis failed, concatenating outputs", zap.Int("outputs", len(outputs)), zap.Error(err))
	return &Result{
		Content:  Merge(outputs),
		Warnings: []string{fmt.Sprintf("synthesis failed (%v); task outputs were concatenated", err)},
	}
}

// Merge concatenates outputs under a heading per source task.
func Merge(outputs []TaskOutput) string {
	parts := make([]string, 0, len(outputs))
	for i, o := range outputs {
		parts = append(parts, "## "+o.heading(i)+"\n\n"+strings.TrimSpace(o.Content))
	}
	return strings.Join(parts, "\n\n")
}

func userPrompt(prompt string, outputs []TaskOutput) string {
	var sb strings.Builder
	sb.WriteString("Original request:\n")
	sb.WriteString(strings.TrimSpace(prompt))
	sb.WriteString("\n\nResults to combine:\n")
	for i, o := range outputs {
		fmt.Fprintf(&sb, "\n<result index=\"%d\" title=%q>\n%s\n</result>\n", i+1, o.heading(i), strings.TrimSpace(o.Content))
	}
	return sb.String()
}
