package decompose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		prompt string
		want   Category
	}{
		{"Research the history of the printing press and compare sources", CategoryResearch},
		{"Write a short story about a lighthouse keeper", CategoryCreative},
		{"Implement a REST API in Go and deploy it", CategoryDevelopment},
		{"Analyze our sales data and forecast next quarter's metrics", CategoryAnalysis},
		{"Hello there", CategoryGeneric},
		{"", CategoryGeneric},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.prompt))
		})
	}
}

func TestHeuristic_AlwaysValid(t *testing.T) {
	prompts := map[Category]string{
		CategoryResearch:    "Investigate and research renewable energy sources",
		CategoryCreative:    "Write a poem about autumn",
		CategoryDevelopment: "Build a CLI app that can refactor code",
		CategoryAnalysis:    "Analyze churn data and assess the trend",
		CategoryGeneric:     "Plan my weekend",
	}
	for cat, prompt := range prompts {
		t.Run(string(cat), func(t *testing.T) {
			require.Equal(t, cat, Classify(prompt))

			d := Heuristic(prompt)
			require.NoError(t, Validate(d))
			assert.Equal(t, SourceHeuristic, d.Source)
			assert.GreaterOrEqual(t, len(d.Tasks), 2)
			assert.LessOrEqual(t, len(d.Tasks), 3)
			assert.NotEmpty(t, d.MainTitle)

			for _, n := range d.Tasks {
				assert.Contains(t, n.Description, prompt, "descriptions must be self-contained")
				assert.True(t, n.ModelTier.Valid())
				assert.NotEmpty(t, n.SuggestedAgent.Name)
				assert.NotEmpty(t, n.SuggestedAgent.Role)
			}
		})
	}
}

func TestHeuristic_Analysis(t *testing.T) {
	d := Heuristic("Analyze the survey data")
	assert.Equal(t, StrategyParallel, d.Strategy)
	assert.True(t, d.RequiresSynthesis)
	for _, n := range d.Tasks {
		assert.Empty(t, n.Dependencies)
		assert.True(t, n.Parallelizable)
	}
}

func TestHeuristic_Research(t *testing.T) {
	d := Heuristic("Research quantum computing")
	assert.Equal(t, StrategySequential, d.Strategy)
	assert.False(t, d.RequiresSynthesis)

	sinks := d.SinkTasks()
	require.Len(t, sinks, 1)
	assert.Equal(t, "t3", sinks[0].ID)
	assert.Equal(t, []IOInput{{Name: "t2_output", From: "t2"}}, sinks[0].IOContract.Inputs)
}

func TestHeuristic_LongPromptTitle(t *testing.T) {
	long := "Research the economic and social consequences of the industrial revolution across Europe"
	d := Heuristic(long)
	assert.LessOrEqual(t, len([]rune(d.MainTitle)), 60)
	assert.Equal(t, long, d.MainDescription)
}
