package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	orchestra "github.com/armatrix/orchestra-go"
	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/internal/config"
	"github.com/armatrix/orchestra-go/llm/llmtest"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    decompose.Strategy
		wantErr bool
	}{
		{"", "", false},
		{"parallel-agents", decompose.StrategyParallel, false},
		{"Iterative_Deep", decompose.StrategyIterativeDeep, false},
		{"swarm", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := runFlags{strategy: tt.in}
			got, err := f.parseStrategy()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LogSettings{Level: "warn"}, false, "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = newLogger(config.LogSettings{Level: "warn"}, true, "debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogSettings{}, false, "loud")
	assert.Error(t, err)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := newClient(&config.Settings{})
	assert.ErrorIs(t, err, errNoAPIKey)

	c, err := newClient(&config.Settings{Anthropic: config.AnthropicSettings{APIKey: "sk-test"}})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBuildOptions(t *testing.T) {
	s := &config.Settings{
		Run:   config.RunSettings{MaxTurns: 5, MaxConcurrency: 2, TaskRetries: 0},
		Model: config.ModelSettings{Tiers: map[string]string{"fast": "claude-haiku-test"}},
	}

	opts, err := buildOptions(s, &runFlags{agents: []string{"researcher"}, strategy: "parallel_agents"}, llmtest.New(), zap.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	_, err = buildOptions(&config.Settings{}, &runFlags{workspace: t.TempDir()}, llmtest.New(), zap.NewNop())
	assert.NoError(t, err)

	_, err = buildOptions(&config.Settings{}, &runFlags{workspace: "/does/not/exist"}, llmtest.New(), zap.NewNop())
	assert.Error(t, err)

	_, err = buildOptions(&config.Settings{}, &runFlags{agents: []string{"juggler"}}, llmtest.New(), zap.NewNop())
	assert.ErrorContains(t, err, "juggler")

	bad := &config.Settings{Model: config.ModelSettings{Tiers: map[string]string{"huge": "x"}}}
	_, err = buildOptions(bad, &runFlags{}, llmtest.New(), zap.NewNop())
	assert.ErrorContains(t, err, "huge")

	_, err = buildOptions(&config.Settings{}, &runFlags{strategy: "swarm"}, llmtest.New(), zap.NewNop())
	assert.Error(t, err)
}

func samplePlan() *decompose.TaskDecomposition {
	return &decompose.TaskDecomposition{
		MainTitle: "Bees",
		Strategy:  decompose.StrategySequential,
		Source:    decompose.SourceLLM,
		Tasks: []decompose.DecomposedTask{
			{ID: "t1", Title: "Research", ExecutionMode: decompose.ModeIterative, SuggestedAgent: decompose.Persona{Name: "Researcher"}},
			{ID: "t2", Title: "Write", Dependencies: []string{"t1"}, ExecutionMode: decompose.ModeSingleShot, SuggestedAgent: decompose.Persona{Name: "Writer"}},
		},
	}
}

func TestWritePlan(t *testing.T) {
	plan := samplePlan()

	var text bytes.Buffer
	require.NoError(t, writePlan(&text, plan, "text"))
	assert.Contains(t, text.String(), "[t2] Write (Writer")
	assert.Contains(t, text.String(), "after: t1")

	var js bytes.Buffer
	require.NoError(t, writePlan(&js, plan, "json"))
	var decoded decompose.TaskDecomposition
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded.Tasks, 2)

	var ym bytes.Buffer
	require.NoError(t, writePlan(&ym, plan, "yaml"))
	assert.Contains(t, ym.String(), "mainTitle: Bees")
	assert.NotContains(t, ym.String(), `"mainTitle"`)
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &generic))
	assert.Equal(t, "sequential_agents", generic["strategy"])

	assert.Error(t, writePlan(&bytes.Buffer{}, plan, "xml"))
}

func TestConsume(t *testing.T) {
	client := llmtest.New(
		llmtest.Text(`{"mainTitle":"Bees","tasks":[{"id":"t1","title":"Research","suggestedAgent":{"name":"Researcher","role":"research"}}]}`),
		llmtest.Text("Bees pollinate flowers."),
	)
	orch := orchestra.New(orchestra.WithClient(client))

	var progress bytes.Buffer
	res, err := consume(orch.Run(context.Background(), "Tell me about bees"), &progress, true)
	require.NoError(t, err)

	assert.Equal(t, "Bees pollinate flowers.", res.Content)
	out := progress.String()
	assert.True(t, strings.HasPrefix(out, "plan: Bees"))
	assert.Contains(t, out, "start Researcher: Research")
	assert.Contains(t, out, "done  Research")
	assert.Contains(t, out, "finished: 1/1 tasks")
}
