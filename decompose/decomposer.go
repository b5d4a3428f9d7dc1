package decompose

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/llm"
)

// DefaultMaxTasks caps the size of a model-generated plan.
const DefaultMaxTasks = 8

// Config configures a Decomposer.
type Config struct {
	// Model is the planning model. Temperature defaults to 0.2.
	Model    llm.ModelConfig
	MaxTasks int
	Logger   *zap.Logger
}

// Decomposer turns a prompt into a validated plan.
type Decomposer struct {
	client llm.Client
	cfg    Config
	log    *zap.Logger
}

// New creates a Decomposer backed by client.
func New(client llm.Client, cfg Config) *Decomposer {
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	if cfg.Model.Temperature == nil {
		cfg.Model.Temperature = llm.Temperature(0.2)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Decomposer{client: client, cfg: cfg, log: log.Named("decompose")}
}

// Decompose plans prompt. Inference, parse and validation failures fall back
// to Heuristic; the only error is llm.ErrNoProvider when the Decomposer has
// no client.
func (d *Decomposer) Decompose(ctx context.Context, prompt string, analysis Analysis) (*TaskDecomposition, error) {
	if d.client == nil {
		return nil, llm.ErrNoProvider
	}

	plan, err := d.plan(ctx, prompt, analysis)
	if err == nil {
		d.log.Debug("plan generated",
			zap.Int("tasks", len(plan.Tasks)),
			zap.String("strategy", string(plan.Strategy)))
		return plan, nil
	}

	d.log.Warn("falling back to heuristic plan", zap.Error(err))
	var spent llm.Usage
	if plan != nil {
		spent = plan.Usage
	}
	plan = Heuristic(prompt)
	plan.FallbackReason = err.Error()
	plan.Usage = spent
	return plan, nil
}

func (d *Decomposer) plan(ctx context.Context, prompt string, analysis Analysis) (*TaskDecomposition, error) {
	resp, err := d.client.Complete(ctx, &llm.Request{
		Model:    d.cfg.Model,
		System:   systemPrompt(d.cfg.MaxTasks),
		Messages: []llm.Message{llm.UserMessage(userPrompt(prompt, analysis))},
	})
	if err != nil {
		return nil, fmt.Errorf("decompose: inference: %w", err)
	}
	spent := &TaskDecomposition{Usage: resp.Usage}
	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return spent, err
	}
	if len(plan.Tasks) > d.cfg.MaxTasks {
		return spent, fmt.Errorf("decompose: plan has %d tasks, limit is %d", len(plan.Tasks), d.cfg.MaxTasks)
	}
	plan.Usage = resp.Usage
	if plan.MainDescription == "" {
		plan.MainDescription = prompt
	}
	return plan, nil
}
