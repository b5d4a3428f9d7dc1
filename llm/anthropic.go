package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// Defaults for the Anthropic client.
const (
	DefaultModel     = string(anthropic.ModelClaudeSonnet4_5)
	DefaultMaxTokens = 8192
)

// MessageStreamer abstracts the Anthropic Messages API so the client can be
// tested with canned SSE responses. Production code passes the real
// client.Messages.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

type messageServiceAdapter struct {
	svc *anthropic.MessageService
}

func (a *messageServiceAdapter) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return a.svc.NewStreaming(ctx, params)
}

// Anthropic implements Client on top of the Anthropic Messages API.
// Every call streams; Complete simply discards the deltas.
type Anthropic struct {
	streamer  MessageStreamer
	model     string
	maxTokens int
}

// AnthropicOption configures an Anthropic client.
type AnthropicOption func(*Anthropic)

// WithDefaultModel sets the model used when a request does not name one.
func WithDefaultModel(model string) AnthropicOption {
	return func(a *Anthropic) { a.model = model }
}

// WithDefaultMaxTokens sets the output token limit used when a request does
// not set one.
func WithDefaultMaxTokens(n int) AnthropicOption {
	return func(a *Anthropic) { a.maxTokens = n }
}

// WithStreamer replaces the underlying Messages API, mainly for tests.
func WithStreamer(s MessageStreamer) AnthropicOption {
	return func(a *Anthropic) { a.streamer = s }
}

// NewAnthropic builds a client. Request options such as option.WithAPIKey are
// passed to the SDK; with none, the SDK reads ANTHROPIC_API_KEY.
func NewAnthropic(reqOpts []option.RequestOption, opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, fn := range opts {
		fn(a)
	}
	if a.streamer == nil {
		client := anthropic.NewClient(reqOpts...)
		a.streamer = &messageServiceAdapter{svc: &client.Messages}
	}
	return a
}

// Complete implements Client.
func (a *Anthropic) Complete(ctx context.Context, req *Request) (*Response, error) {
	return a.Stream(ctx, req, nil)
}

// Stream implements Client.
func (a *Anthropic) Stream(ctx context.Context, req *Request, onDelta func(string)) (*Response, error) {
	params := a.buildParams(req)

	stream := a.streamer.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, fmt.Errorf("llm: accumulate: %w", err)
		}
		if onDelta != nil && event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			onDelta(event.Delta.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("llm: stream: %w", err)
	}
	return toResponse(msg, string(params.Model)), nil
}

func (a *Anthropic) buildParams(req *Request) anthropic.MessageNewParams {
	model := req.Model.Model
	if model == "" {
		model = a.model
	}
	maxTokens := req.Model.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Model.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Model.Temperature)
	}
	for _, def := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: param.NewOpt(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.InputSchema.Properties,
					Required:   def.InputSchema.Required,
				},
			},
		})
	}
	return params
}

// toMessageParams converts a neutral history into API messages. Consecutive
// tool results and user text collapse into one user turn, as the API expects
// results for every tool_use of the preceding assistant turn in a single
// message.
func toMessageParams(msgs []Message) []anthropic.MessageParam {
	var (
		out     []anthropic.MessageParam
		pending []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			pending = append(pending, anthropic.NewTextBlock(m.Content))
		}
	}
	flush()
	return out
}

func toResponse(msg anthropic.Message, model string) *Response {
	resp := &Response{
		StopReason: StopReason(msg.StopReason),
		Usage: Usage{
			Model:            model,
			InputTokens:      int(msg.Usage.InputTokens),
			OutputTokens:     int(msg.Usage.OutputTokens),
			CacheReadTokens:  int(msg.Usage.CacheReadInputTokens),
			CacheWriteTokens: int(msg.Usage.CacheCreationInputTokens),
		},
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			tu := block.AsToolUse()
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    tu.ID,
				Name:  tu.Name,
				Input: tu.Input,
			})
		}
	}
	resp.Content = text.String()
	return resp
}
