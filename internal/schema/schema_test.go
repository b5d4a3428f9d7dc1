package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type messageInput struct {
	Recipient string `json:"recipient" jsonschema:"required,description=Name of the teammate"`
	Content   string `json:"content" jsonschema:"required,description=Message body"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"required"`
	Limit *int   `json:"limit,omitempty" jsonschema:"description=Maximum results"`
	Exact bool   `json:"exact,omitempty"`
}

type priority struct {
	Level string `json:"level" jsonschema:"enum=low,enum=high"`
}

type nestedInput struct {
	Title    string     `json:"title" jsonschema:"required"`
	Priority priority   `json:"priority"`
	Labels   []string   `json:"labels,omitempty"`
	Steps    []priority `json:"steps,omitempty"`
}

func TestGenerate_Simple(t *testing.T) {
	s := Generate[messageInput]()

	rc, ok := s.Properties["recipient"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", rc["type"])
	assert.Equal(t, "Name of the teammate", rc["description"])

	assert.ElementsMatch(t, []string{"recipient", "content"}, s.Required)
}

func TestGenerate_OptionalAndPointer(t *testing.T) {
	s := Generate[searchInput]()

	assert.Equal(t, []string{"query"}, s.Required)
	limit, ok := s.Properties["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", limit["type"])
	exact, ok := s.Properties["exact"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boolean", exact["type"])
}

func TestGenerate_Nested(t *testing.T) {
	s := Generate[nestedInput]()

	p, ok := s.Properties["priority"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", p["type"])
	inner, ok := p["properties"].(map[string]any)
	require.True(t, ok)
	level, ok := inner["level"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"low", "high"}, level["enum"])

	labels, ok := s.Properties["labels"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", labels["type"])
	assert.Equal(t, map[string]any{"type": "string"}, labels["items"])

	steps, ok := s.Properties["steps"].(map[string]any)
	require.True(t, ok)
	items, ok := steps["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", items["type"])
}

func TestDocument(t *testing.T) {
	raw, err := Document[nestedInput]()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.NotContains(t, doc, "$ref")
	assert.NotContains(t, doc, "$schema")
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "priority")
}
