package orchestra

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/llm/llmtest"
	"github.com/armatrix/orchestra-go/teams"
)

func TestResolveOptionsDefaults(t *testing.T) {
	opts := resolveOptions(nil)

	assert.Nil(t, opts.client)
	assert.NotNil(t, opts.logger)
	assert.NotNil(t, opts.tools)
	assert.Equal(t, llm.DefaultTierModels, opts.tiers)
	assert.Equal(t, DefaultMaxConcurrency, opts.maxConcurrency)
	assert.Equal(t, DefaultTaskRetries, opts.taskRetries)
	assert.Equal(t, DefaultMaxTurns, opts.maxTurns)
	assert.Equal(t, DefaultStreamBufferSize, opts.streamBufferSize)
	assert.True(t, opts.maxBudget.IsZero())
	assert.Empty(t, opts.strategy)
}

func TestResolveOptionsClamps(t *testing.T) {
	opts := resolveOptions([]Option{
		WithMaxConcurrency(-3),
		WithTaskRetries(-1),
		WithStreamBufferSize(0),
	})
	assert.Equal(t, DefaultMaxConcurrency, opts.maxConcurrency)
	assert.Zero(t, opts.taskRetries)
	assert.Equal(t, DefaultStreamBufferSize, opts.streamBufferSize)
}

func TestOptions(t *testing.T) {
	client := llmtest.New()
	lead := teams.Teammate{Name: "Boss"}
	opts := resolveOptions([]Option{
		WithClient(client),
		WithModel(llm.ModelConfig{Model: "base"}),
		WithPlannerModel(llm.ModelConfig{Model: "planner"}),
		WithLead(lead),
		WithAgents(teams.Teammate{Name: "A"}),
		WithAgents(teams.Teammate{Name: "B"}),
		WithTaskRetries(0),
		WithMaxTurns(7),
		WithStrategy(decompose.StrategyParallel),
		WithMaxPlanTasks(3),
		WithBudget(decimal.NewFromFloat(1.5)),
	})

	assert.Same(t, client, opts.client)
	assert.Equal(t, "base", opts.model.Model)
	assert.Equal(t, "planner", opts.plannerModel.Model)
	require.NotNil(t, opts.lead)
	assert.Equal(t, "Boss", opts.lead.Name)
	assert.Len(t, opts.agents, 2)
	assert.Zero(t, opts.taskRetries)
	assert.Equal(t, 7, opts.maxTurns)
	assert.Equal(t, decompose.StrategyParallel, opts.strategy)
	assert.Equal(t, 3, opts.maxPlanTasks)
	assert.True(t, opts.maxBudget.Equal(decimal.NewFromFloat(1.5)))
}

func TestWithAnthropic(t *testing.T) {
	opts := resolveOptions([]Option{WithAnthropic()})
	_, ok := opts.client.(*llm.Anthropic)
	assert.True(t, ok)
}
