package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/permission"
	"github.com/armatrix/orchestra-go/teams"
	"github.com/armatrix/orchestra-go/tools"
)

// CancelledError is the error recorded on a cancelled run.
const CancelledError = "Execution cancelled"

// Config holds everything a Runner needs.
type Config struct {
	Client llm.Client

	// Tools is the default tool set. Input.Tools replaces it for one run.
	Tools ToolExecutor

	// Context sources. Nil sources contribute nothing.
	Knowledge KnowledgeSource
	Memory    MemorySource
	Skills    SkillSource

	// Base is the model configuration every run starts from.
	Base llm.ModelConfig

	// Tiers maps model tiers to model names. Nil means llm.DefaultTierModels.
	Tiers map[llm.Tier]string

	Logger *zap.Logger
}

// Runner executes tasks through agents. It is safe for concurrent use.
type Runner struct {
	cfg Config
	log *zap.Logger
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Tiers == nil {
		cfg.Tiers = llm.DefaultTierModels
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: log.Named("runner")}
}

// Progress is reported after every turn.
type Progress struct {
	Turn    int
	Content string
	// Tools lists the tools called during the turn.
	Tools []string
}

// Input describes one run.
type Input struct {
	Task  *teams.Task
	Agent *teams.Teammate

	// Prompt is the user message. Empty means the task description.
	Prompt string
	Scope  Scope

	DependencyOutputs string
	KnowledgeRefs     []string
	Attachments       []Attachment

	Tools ToolExecutor

	OnProgress func(Progress)
	OnDelta    func(string)
}

// ToolCallRecord is one executed tool call.
type ToolCallRecord struct {
	Name    string
	Input   json.RawMessage
	Output  string
	IsError bool
}

// Result is the outcome of a run.
type Result struct {
	Success   bool
	Response  string
	TurnsUsed int
	ToolLog   []ToolCallRecord
	Errors    []string
	Cancelled bool
	Model     string
	Usage     llm.Usage
	Duration  time.Duration
}

func (res *Result) cancel() *Result {
	res.Success = false
	res.Cancelled = true
	res.Errors = append(res.Errors, CancelledError)
	return res
}

// Run executes the iterative loop. The only error is llm.ErrNoProvider; every
// other outcome is described by the Result.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	if r.cfg.Client == nil {
		return nil, llm.ErrNoProvider
	}
	start := time.Now()
	res := &Result{}
	defer func() { res.Duration = time.Since(start) }()

	if ctx.Err() != nil {
		return res.cancel(), nil
	}

	// 1. System prompt
	system := r.buildSystemPrompt(ctx, in)

	// 2. Tool set: agent lists, then scope lists
	exec := in.Tools
	if exec == nil {
		exec = r.cfg.Tools
	}
	available := filterTools(exec, r.policy(in))

	// 3. Model
	model := r.resolveModel(in)
	res.Model = model.Model

	// 4. History
	history := []llm.Message{llm.UserMessage(userMessage(in))}

	budget := in.Scope.turnBudget()
	log := r.log.With(zap.String("model", model.Model), zap.Int("budget", budget))
	if in.Task != nil {
		log = log.With(zap.String("task_id", in.Task.ID))
	}
	if in.Agent != nil {
		log = log.With(zap.String("agent_id", in.Agent.ID))
	}

	// 5. Loop
	for res.TurnsUsed < budget {
		if ctx.Err() != nil {
			log.Debug("run cancelled", zap.Int("turns", res.TurnsUsed))
			return res.cancel(), nil
		}

		resp, err := r.call(ctx, &llm.Request{
			Model:    model,
			System:   system,
			Messages: history,
			Tools:    available.Definitions(),
		}, in.OnDelta)
		if err != nil {
			if ctx.Err() != nil {
				return res.cancel(), nil
			}
			log.Warn("inference failed", zap.Int("turn", res.TurnsUsed+1), zap.Error(err))
			res.Errors = append(res.Errors, err.Error())
			return res, nil
		}

		res.TurnsUsed++
		res.Usage.Add(resp.Usage)
		if resp.Content != "" {
			res.Response = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			res.Success = true
			r.progress(in.OnProgress, Progress{Turn: res.TurnsUsed, Content: res.Response})
			return res, nil
		}

		history = append(history, llm.AssistantMessage(resp.Content, resp.ToolCalls...))
		names := make([]string, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			output, isErr := r.executeTool(ctx, available, call)
			history = append(history, llm.ToolResultMessage(call.ID, output, isErr))
			res.ToolLog = append(res.ToolLog, ToolCallRecord{
				Name:    call.Name,
				Input:   call.Input,
				Output:  output,
				IsError: isErr,
			})
			names = append(names, call.Name)
		}
		r.progress(in.OnProgress, Progress{Turn: res.TurnsUsed, Content: res.Response, Tools: names})
	}

	// Budget spent without a tool-free turn; the last content stands.
	log.Debug("turn budget exhausted", zap.Int("turns", res.TurnsUsed))
	res.Success = true
	return res, nil
}

// RunSingleShot makes one streamed call without tools.
func (r *Runner) RunSingleShot(ctx context.Context, in Input) (*Result, error) {
	if r.cfg.Client == nil {
		return nil, llm.ErrNoProvider
	}
	start := time.Now()
	res := &Result{}
	defer func() { res.Duration = time.Since(start) }()

	if ctx.Err() != nil {
		return res.cancel(), nil
	}

	model := r.resolveModel(in)
	res.Model = model.Model

	resp, err := r.call(ctx, &llm.Request{
		Model:    model,
		System:   r.buildSystemPrompt(ctx, in),
		Messages: []llm.Message{llm.UserMessage(userMessage(in))},
	}, in.OnDelta)
	if err != nil {
		if ctx.Err() != nil {
			return res.cancel(), nil
		}
		res.Errors = append(res.Errors, err.Error())
		return res, nil
	}

	res.TurnsUsed = 1
	res.Usage.Add(resp.Usage)
	res.Response = resp.Content
	res.Success = true
	r.progress(in.OnProgress, Progress{Turn: 1, Content: res.Response})
	return res, nil
}

func (r *Runner) call(ctx context.Context, req *llm.Request, onDelta func(string)) (*llm.Response, error) {
	if onDelta == nil {
		return r.cfg.Client.Complete(ctx, req)
	}
	return r.cfg.Client.Stream(ctx, req, func(delta string) {
		defer r.recoverCallback("delta")
		onDelta(delta)
	})
}

// resolveModel layers base, tier, agent model and scope overrides.
func (r *Runner) resolveModel(in Input) llm.ModelConfig {
	m := r.cfg.Base
	if in.Scope.Tier != "" {
		if name, ok := r.cfg.Tiers[in.Scope.Tier]; ok {
			m.Model = name
		}
	}
	if in.Agent != nil && in.Agent.Model != "" {
		m.Model = in.Agent.Model
	}
	return m.Merge(in.Scope.Model)
}

func (r *Runner) policy(in Input) permission.Chain {
	var chain permission.Chain
	if in.Agent != nil {
		chain = append(chain, permission.Policy{Allow: in.Agent.AllowedTools, Deny: in.Agent.DeniedTools})
	}
	return append(chain, permission.Policy{Allow: in.Scope.AllowedTools, Deny: in.Scope.DeniedTools})
}

// executeTool runs one call. Failures of any kind become an "Error: ..."
// result for the model.
func (r *Runner) executeTool(ctx context.Context, exec ToolExecutor, call llm.ToolCall) (output string, isError bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("tool panicked", zap.String("tool", call.Name), zap.Any("panic", p))
			output, isError = fmt.Sprintf("Error: tool %s panicked: %v", call.Name, p), true
		}
	}()

	result, err := exec.Execute(ctx, call.Name, call.Input)
	switch {
	case err != nil:
		r.log.Debug("tool failed", zap.String("tool", call.Name), zap.Error(err))
		return "Error: " + err.Error(), true
	case result == nil:
		return "", false
	case result.IsError && !strings.HasPrefix(result.Content, "Error:"):
		return "Error: " + result.Content, true
	default:
		return result.Content, result.IsError
	}
}

func (r *Runner) progress(fn func(Progress), p Progress) {
	if fn == nil {
		return
	}
	defer r.recoverCallback("progress")
	fn(p)
}

func (r *Runner) recoverCallback(name string) {
	if p := recover(); p != nil {
		r.log.Warn("callback panicked", zap.String("callback", name), zap.Any("panic", p))
	}
}

var _ ToolExecutor = (*tools.Registry)(nil)
