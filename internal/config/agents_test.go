package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgents(t *testing.T) {
	user := t.TempDir()
	project := t.TempDir()

	writeFile(t, filepath.Join(user, "researcher.md"), `---
name: Researcher
role: research
tags: [research, sources]
model: claude-haiku-4-5
allowed_tools: ["Search*", "ReadMessages"]
---
Find primary sources.
`)
	writeFile(t, filepath.Join(user, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(project, "researcher.md"), "---\nname: researcher\nrole: deep research\n---\nOverride.")
	writeFile(t, filepath.Join(project, "plain.md"), "No header at all.")

	agents, err := LoadAgents(user, project, filepath.Join(project, "missing"))
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.Equal(t, "plain", agents[0].Name)
	assert.Equal(t, "No header at all.", agents[0].Instructions)

	assert.Equal(t, "researcher", agents[1].Name)
	assert.Equal(t, "deep research", agents[1].Role)
	assert.Equal(t, "Override.", agents[1].Instructions)
}

func TestLoadAgents_BadFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.md"), "---\nname: x\nno closing fence")
	_, err := LoadAgents(dir)
	assert.ErrorContains(t, err, "missing closing")
}

func TestAgent_Teammate(t *testing.T) {
	a := Agent{
		Name:      "Ada",
		Role:      "research",
		Tags:      []string{"papers"},
		Knowledge: []string{"kb:1"},
		Skills:    []string{"cite"},
		Model:     "m",
	}
	tm := a.Teammate()
	assert.Empty(t, tm.ID)
	assert.Equal(t, "Ada", tm.Name)
	assert.Equal(t, []string{"papers"}, tm.Tags)
	assert.Equal(t, []string{"kb:1"}, tm.KnowledgeRefs)
	assert.Equal(t, []string{"cite"}, tm.SkillIDs)
	assert.Equal(t, "m", tm.Model)
}

func TestGetPreset(t *testing.T) {
	a, ok := GetPreset(" Researcher ")
	require.True(t, ok)
	assert.Equal(t, "research", a.Role)
	assert.NotEmpty(t, a.Instructions)

	_, ok = GetPreset("astronaut")
	assert.False(t, ok)
}
