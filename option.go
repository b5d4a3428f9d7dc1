package orchestra

import (
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/runner"
	"github.com/armatrix/orchestra-go/teams"
	"github.com/armatrix/orchestra-go/tools"
)

// Option configures an Orchestrator via the functional options pattern.
type Option func(*options)

// options holds all configurable fields set via Option functions.
type options struct {
	client llm.Client
	logger *zap.Logger

	model          llm.ModelConfig
	plannerModel   llm.ModelConfig
	synthesisModel llm.ModelConfig
	tiers          map[llm.Tier]string

	tools  *tools.Registry
	lead   *teams.Teammate
	agents []teams.Teammate

	knowledge runner.KnowledgeSource
	memory    runner.MemorySource
	skills    runner.SkillSource

	maxConcurrency   int
	taskRetries      int
	maxTurns         int
	maxBudget        decimal.Decimal
	strategy         decompose.Strategy
	maxPlanTasks     int
	streamBufferSize int
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tiers == nil {
		o.tiers = llm.DefaultTierModels
	}
	if o.tools == nil {
		o.tools = tools.NewRegistry()
	}
	if o.maxConcurrency <= 0 {
		o.maxConcurrency = DefaultMaxConcurrency
	}
	if o.taskRetries < 0 {
		o.taskRetries = 0
	}
	if o.maxTurns == 0 {
		o.maxTurns = DefaultMaxTurns
	}
	if o.streamBufferSize <= 0 {
		o.streamBufferSize = DefaultStreamBufferSize
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []Option) options {
	o := options{taskRetries: DefaultTaskRetries}
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Inference ---

// WithClient sets the inference client.
func WithClient(c llm.Client) Option {
	return func(o *options) { o.client = c }
}

// WithAnthropic uses the Anthropic Messages API. Request options such as
// option.WithAPIKey are passed to the SDK; by default it reads
// ANTHROPIC_API_KEY.
func WithAnthropic(reqOpts ...option.RequestOption) Option {
	return func(o *options) { o.client = llm.NewAnthropic(reqOpts) }
}

// WithModel sets the base model configuration for agent runs.
func WithModel(m llm.ModelConfig) Option {
	return func(o *options) { o.model = m }
}

// WithPlannerModel sets the model used to decompose requests.
func WithPlannerModel(m llm.ModelConfig) Option {
	return func(o *options) { o.plannerModel = m }
}

// WithSynthesisModel sets the model used to merge task outputs.
func WithSynthesisModel(m llm.ModelConfig) Option {
	return func(o *options) { o.synthesisModel = m }
}

// WithTiers maps plan model tiers to model names.
func WithTiers(tiers map[llm.Tier]string) Option {
	return func(o *options) { o.tiers = tiers }
}

// --- Team ---

// WithLead sets the team lead.
func WithLead(lead teams.Teammate) Option {
	return func(o *options) { o.lead = &lead }
}

// WithAgents adds teammates to every team alongside the planned personas.
func WithAgents(agents ...teams.Teammate) Option {
	return func(o *options) { o.agents = append(o.agents, agents...) }
}

// WithTools sets the tool registry shared by all agents. Each agent gets a
// clone with the team communication tools added.
func WithTools(r *tools.Registry) Option {
	return func(o *options) { o.tools = r }
}

// --- Context sources ---

// WithKnowledge sets the knowledge source spliced into system prompts.
func WithKnowledge(s runner.KnowledgeSource) Option {
	return func(o *options) { o.knowledge = s }
}

// WithMemory sets the memory source spliced into system prompts.
func WithMemory(s runner.MemorySource) Option {
	return func(o *options) { o.memory = s }
}

// WithSkills sets the skill source spliced into system prompts.
func WithSkills(s runner.SkillSource) Option {
	return func(o *options) { o.skills = s }
}

// --- Execution ---

// WithMaxConcurrency bounds concurrently running agents.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// WithTaskRetries sets how often a failed task run is retried.
func WithTaskRetries(n int) Option {
	return func(o *options) { o.taskRetries = n }
}

// WithMaxTurns sets the default agent turn budget.
func WithMaxTurns(n int) Option {
	return func(o *options) { o.maxTurns = n }
}

// WithStrategy overrides the strategy chosen by the planner.
func WithStrategy(s decompose.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithMaxPlanTasks caps the size of model-generated plans.
func WithMaxPlanTasks(n int) Option {
	return func(o *options) { o.maxPlanTasks = n }
}

// WithBudget sets the maximum spend in USD for a run. Zero means unlimited.
// Once exhausted, no new tasks are started.
func WithBudget(maxUSD decimal.Decimal) Option {
	return func(o *options) { o.maxBudget = maxUSD }
}

// --- Observability ---

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStreamBufferSize sets the event channel buffer size.
func WithStreamBufferSize(n int) Option {
	return func(o *options) { o.streamBufferSize = n }
}
