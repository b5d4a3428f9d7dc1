package decompose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/orchestra-go/llm"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose", "Here is the plan:\n{\"a\":{\"b\":2}}\nHope it helps.", `{"a":{"b":2}}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"brace in string", `{"a":"x}y{"}`, `{"a":"x}y{"}`, true},
		{"escaped quote", `{"a":"say \"}\""}`, `{"a":"say \"}\""}`, true},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"brace in prose before fence", "Sure, I split {the request} into tasks:\n```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"trailing comma candidate", "{see below} {\"a\":[1,2,],}", `{"a":[1,2,],}`, true},
		{"only prose braces", "use {x} or {y}", "{x}", true},
		{"unbalanced", `{"a":{"b":1}`, "", false},
		{"none", "no json here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a":[1,2],"b":3}`, StripTrailingCommas(`{"a":[1,2,],"b":3,}`))
	assert.Equal(t, "{\"a\":1\n}", StripTrailingCommas("{\"a\":1,\n}"))
	assert.Equal(t, `{"a":",}"}`, StripTrailingCommas(`{"a":",}"}`))
}

func TestParsePlan(t *testing.T) {
	resp := "Sure! Here's the plan:\n```json\n" + `{
  "mainTitle": "Compare databases",
  "tasks": [
    {"id": "t1", "title": "Research Postgres", "description": "Summarize Postgres strengths.", "complexity": "complex", "dependencies": [], "modelTier": "FAST", "suggestedAgent": {"role": "database researcher"}},
    {"id": "t2", "title": "Research MySQL", "description": "Summarize MySQL strengths.", "dependencies": [],},
    {"id": "t3", "title": "Compare", "description": "Compare both.", "dependencies": ["t1", "t2"], "executionMode": "single_shot"},
  ],
  "requiresSynthesis": false,
  "strategy": "parallel-agents",
}` + "\n```"

	plan, err := ParsePlan(resp)
	require.NoError(t, err)

	assert.Equal(t, SourceLLM, plan.Source)
	assert.Equal(t, "Compare databases", plan.MainTitle)
	assert.Equal(t, StrategyParallel, plan.Strategy)
	require.Len(t, plan.Tasks, 3)

	t1 := plan.Tasks[0]
	assert.Equal(t, ComplexityComplex, t1.Complexity)
	assert.Equal(t, ModeIterative, t1.ExecutionMode)
	assert.Equal(t, llm.TierFast, t1.ModelTier)
	assert.Equal(t, "Database Researcher", t1.SuggestedAgent.Name)

	t2 := plan.Tasks[1]
	assert.Equal(t, ComplexitySimple, t2.Complexity)
	assert.Equal(t, ModeSingleShot, t2.ExecutionMode)
	assert.Equal(t, llm.TierBalanced, t2.ModelTier)
	assert.Equal(t, "specialist", t2.SuggestedAgent.Role)

	assert.Equal(t, ModeSingleShot, plan.Tasks[2].ExecutionMode)
	assert.Equal(t, []string{"t1", "t2"}, plan.Tasks[2].Dependencies)
}

func TestParsePlan_BracesInProse(t *testing.T) {
	resp := "Sure, I split {the request} into tasks:\n```json\n" +
		`{"mainTitle":"Trip","tasks":[{"id":"t1","title":"Book"},{"id":"t2","title":"Pack","dependencies":["t1"]}]}` +
		"\n```\nLet me know {if anything} changes."

	plan, err := ParsePlan(resp)
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, plan.Source)
	assert.Equal(t, "Trip", plan.MainTitle)
	assert.Len(t, plan.Tasks, 2)
}

func TestParsePlan_PersonaNameFromRole(t *testing.T) {
	plan, err := ParsePlan(`{"tasks":[{"title":"A","suggestedAgent":{"role":"édition manager"}},{"title":"B","suggestedAgent":{"role":"über analyst"}}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Édition Manager", plan.Tasks[0].SuggestedAgent.Name)
	assert.Equal(t, "Über Analyst", plan.Tasks[1].SuggestedAgent.Name)
}

func TestParsePlan_Defaults(t *testing.T) {
	plan, err := ParsePlan(`{"tasks":[{"description":"do it"},{"title":"Next","dependencies":["t1"]}]}`)
	require.NoError(t, err)

	assert.Equal(t, "t1", plan.Tasks[0].ID)
	assert.Equal(t, "Task 1", plan.Tasks[0].Title)
	assert.Equal(t, "Next", plan.Tasks[1].Description)
	assert.Equal(t, "Task 1", plan.MainTitle)
	assert.Equal(t, StrategySequential, plan.Strategy)

	single, err := ParsePlan(`{"tasks":[{"title":"Only"}]}`)
	require.NoError(t, err)
	assert.Equal(t, StrategySingleAgent, single.Strategy)
}

func TestParsePlan_Errors(t *testing.T) {
	_, err := ParsePlan("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParsePlan(`{"tasks": "nope"}`)
	assert.Error(t, err)

	_, err = ParsePlan(`{"tasks":[]}`)
	assert.ErrorIs(t, err, ErrEmptyPlan)

	_, err = ParsePlan(`{"tasks":[{"id":"t1","title":"A","dependencies":["t9"]}]}`)
	assert.ErrorIs(t, err, ErrUnknownDependency)
	assert.Contains(t, err.Error(), `"t1"`)

	_, err = ParsePlan(`{"tasks":[{"id":"a","dependencies":["b"]},{"id":"b","dependencies":["a"]}]}`)
	assert.ErrorIs(t, err, ErrCircularDependency)
}
