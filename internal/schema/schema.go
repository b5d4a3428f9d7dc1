// Package schema derives JSON Schemas from Go types using struct tags
// (json, jsonschema).
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/armatrix/orchestra-go/llm"
)

// reflector inlines nested types so every schema is self-contained.
var reflector = &jsonschema.Reflector{
	Anonymous:      true,
	ExpandedStruct: true,
	DoNotReference: true,
}

// Generate produces a tool input schema from a Go struct type T.
func Generate[T any]() llm.Schema {
	var zero T
	root := reflector.Reflect(&zero)
	return llm.Schema{
		Properties: schemaProperties(root),
		Required:   root.Required,
	}
}

// Document returns the complete JSON Schema of T, indented for embedding in
// prompts.
func Document[T any]() (json.RawMessage, error) {
	var zero T
	s := reflector.Reflect(&zero)
	s.Version = ""
	return json.MarshalIndent(s, "", "  ")
}

// schemaProperties converts an ordered map of properties into a plain
// map[string]any suitable for the inference API.
func schemaProperties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = propertySchema(pair.Value)
	}
	return props
}

// propertySchema converts a single property schema to a serializable map.
func propertySchema(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// invopop/jsonschema uses anyOf for nullable types
	if len(s.AnyOf) > 0 {
		for _, sub := range s.AnyOf {
			if sub.Type != "null" && sub.Type != "" {
				m["type"] = sub.Type
				break
			}
		}
	}

	if s.Properties != nil {
		m["type"] = "object"
		m["properties"] = schemaProperties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}

	if s.Items != nil {
		m["items"] = propertySchema(s.Items)
	}

	return m
}
