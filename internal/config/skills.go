package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Skill is a reusable block of instructions agents can be given.
type Skill struct {
	// ID is the file name without extension unless the header sets one.
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`

	Content string `yaml:"-"`
	Path    string `yaml:"-"`
}

// LoadSkills reads every .md file in dirs. Missing directories are skipped
// and a later directory overrides an earlier one for the same skill id.
func LoadSkills(dirs ...string) ([]Skill, error) {
	byID := make(map[string]Skill)
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

			var s Skill
			body, err := parseFrontMatter(data, &s)
			if err != nil {
				return nil, fmt.Errorf("skill %s: %w", path, err)
			}
			if s.ID == "" {
				s.ID = strings.TrimSuffix(entry.Name(), ".md")
			}
			if s.Name == "" {
				s.Name = s.ID
			}
			s.Content = strings.TrimSpace(body)
			s.Path = path
			byID[s.ID] = s
		}
	}

	skills := make([]Skill, 0, len(byID))
	for _, s := range byID {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })
	return skills, nil
}

// FormatSkillsPrompt renders skills as markdown sections.
func FormatSkillsPrompt(skills []Skill) string {
	if len(skills) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, skill := range skills {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("### ")
		sb.WriteString(skill.Name)
		if skill.Description != "" {
			sb.WriteString("\n\n_" + skill.Description + "_")
		}
		if skill.Content != "" {
			sb.WriteString("\n\n")
			sb.WriteString(skill.Content)
		}
	}
	return sb.String()
}

// Catalog looks skills up by id.
type Catalog struct {
	skills map[string]Skill
}

// NewCatalog indexes skills by id.
func NewCatalog(skills []Skill) *Catalog {
	c := &Catalog{skills: make(map[string]Skill, len(skills))}
	for _, s := range skills {
		c.skills[s.ID] = s
	}
	return c
}

// Get returns the skill with the given id.
func (c *Catalog) Get(id string) (Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

// Len returns the number of skills.
func (c *Catalog) Len() int { return len(c.skills) }

// Skills renders the skills with the given ids, in order. Unknown ids are
// ignored.
func (c *Catalog) Skills(_ context.Context, ids []string) (string, error) {
	found := make([]Skill, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.skills[id]; ok {
			found = append(found, s)
		}
	}
	return FormatSkillsPrompt(found), nil
}
