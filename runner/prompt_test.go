package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/orchestra-go/llm/llmtest"
	"github.com/armatrix/orchestra-go/teams"
)

func TestSystemPrompt_Sections(t *testing.T) {
	var gotRefs []string
	client := llmtest.New(llmtest.Text("ok"))
	r := New(Config{
		Client: client,
		Knowledge: KnowledgeFunc(func(_ context.Context, refs []string) (string, error) {
			gotRefs = refs
			return "The sky is blue.", nil
		}),
		Memory: MemoryFunc(func(_ context.Context, agent *teams.Teammate, query string) (string, error) {
			return "User prefers bullet points.", nil
		}),
		Skills: SkillFunc(func(_ context.Context, ids []string) (string, error) {
			return "### " + strings.Join(ids, ", "), nil
		}),
	})

	agent := &teams.Teammate{
		ID:            "agt_1",
		Name:          "Ada",
		Instructions:  "You are Ada, a meticulous researcher.",
		KnowledgeRefs: []string{"kb:sky"},
		SkillIDs:      []string{"summarize"},
	}
	_, err := r.Run(context.Background(), Input{
		Task:              testTask(),
		Agent:             agent,
		DependencyOutputs: "### Gather\nfacts",
	})
	require.NoError(t, err)

	system := client.Requests()[0].System
	assert.True(t, strings.HasPrefix(system, "You are Ada, a meticulous researcher."))
	for _, want := range []string{
		"## Knowledge\n\nThe sky is blue.",
		"## Relevant memories\n\nUser prefers bullet points.",
		"## Skills\n\n### summarize",
		"## Your task\n\n**Summarize**\n\nSummarize the findings.",
		"- under 200 words",
		"## Context from completed tasks\n\n### Gather\nfacts",
	} {
		assert.Contains(t, system, want)
	}
	assert.Equal(t, []string{"kb:sky"}, gotRefs)

	// Section order follows assembly order.
	assert.Less(t, strings.Index(system, "## Knowledge"), strings.Index(system, "## Your task"))
	assert.Less(t, strings.Index(system, "## Your task"), strings.Index(system, "## Context from completed tasks"))
}

func TestSystemPrompt_SourcesDegrade(t *testing.T) {
	client := llmtest.New(llmtest.Text("ok"))
	fail := errors.New("store offline")
	r := New(Config{
		Client:    client,
		Knowledge: KnowledgeFunc(func(context.Context, []string) (string, error) { return "", fail }),
		Memory:    MemoryFunc(func(context.Context, *teams.Teammate, string) (string, error) { return "   ", nil }),
		Skills:    SkillFunc(func(context.Context, []string) (string, error) { return "", fail }),
	})

	res, err := r.Run(context.Background(), Input{
		Task:          testTask(),
		Agent:         &teams.Teammate{ID: "a", Name: "Bo", Role: "editing", SkillIDs: []string{"x"}},
		KnowledgeRefs: []string{"kb:1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	system := client.Requests()[0].System
	assert.NotContains(t, system, "## Knowledge")
	assert.NotContains(t, system, "## Relevant memories")
	assert.NotContains(t, system, "## Skills")
	assert.Contains(t, system, "You are Bo, a specialist in editing")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "explicit", userMessage(Input{Prompt: "explicit", Task: testTask()}))
	assert.Equal(t, "Summarize the findings.", userMessage(Input{Task: testTask()}))
	assert.Equal(t, "Title only", userMessage(Input{Task: &teams.Task{Title: "Title only"}}))

	msg := userMessage(Input{Prompt: "read this", Attachments: []Attachment{{Name: "notes.md", Content: "hello"}}})
	assert.Equal(t, "read this\n\n<attachment name=\"notes.md\">\nhello\n</attachment>", msg)
}

func TestBaseInstructions(t *testing.T) {
	assert.Contains(t, baseInstructions(nil), "helpful assistant")
	assert.Equal(t,
		"You are Cy, a specialist in data, working as part of a team of agents. Your specialization: time series.",
		baseInstructions(&teams.Teammate{Name: "Cy", Role: "data", Specialization: "time series"}))
}
