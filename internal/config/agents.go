package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/armatrix/orchestra-go/teams"
)

// Agent is a teammate definition from a settings file, a preset or a
// markdown file.
type Agent struct {
	ID             string   `mapstructure:"id" yaml:"id"`
	Name           string   `mapstructure:"name" yaml:"name"`
	Role           string   `mapstructure:"role" yaml:"role"`
	Instructions   string   `mapstructure:"instructions" yaml:"instructions"`
	Tags           []string `mapstructure:"tags" yaml:"tags"`
	Specialization string   `mapstructure:"specialization" yaml:"specialization"`
	Model          string   `mapstructure:"model" yaml:"model"`
	AllowedTools   []string `mapstructure:"allowed_tools" yaml:"allowed_tools"`
	DeniedTools    []string `mapstructure:"denied_tools" yaml:"denied_tools"`
	Knowledge      []string `mapstructure:"knowledge" yaml:"knowledge"`
	Skills         []string `mapstructure:"skills" yaml:"skills"`
}

// Teammate converts the definition. An empty ID is left for the team to
// assign.
func (a Agent) Teammate() teams.Teammate {
	return teams.Teammate{
		ID:             a.ID,
		Name:           a.Name,
		Role:           a.Role,
		Instructions:   a.Instructions,
		Tags:           a.Tags,
		Specialization: a.Specialization,
		Model:          a.Model,
		AllowedTools:   a.AllowedTools,
		DeniedTools:    a.DeniedTools,
		KnowledgeRefs:  a.Knowledge,
		SkillIDs:       a.Skills,
	}
}

// LoadAgents scans directories for agent definitions: markdown files whose
// front matter holds the Agent fields and whose body is the instructions.
// The name defaults to the file name. Later directories override earlier
// ones for the same name.
func LoadAgents(dirs ...string) ([]Agent, error) {
	seen := make(map[string]Agent)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}

			var a Agent
			body, err := parseFrontMatter(data, &a)
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", path, err)
			}
			if a.Name == "" {
				a.Name = strings.TrimSuffix(entry.Name(), ".md")
			}
			if body = strings.TrimSpace(body); body != "" {
				a.Instructions = body
			}
			seen[strings.ToLower(a.Name)] = a
		}
	}

	agents := make([]Agent, 0, len(seen))
	for _, a := range seen {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}
