// Package config loads layered settings, agent definitions and skills.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ProjectFile is the per-project settings file, searched for from the
// working directory upward.
const ProjectFile = ".orchestra.yaml"

// EnvPrefix prefixes environment overrides, e.g. ORCHESTRA_RUN_MAX_CONCURRENCY.
const EnvPrefix = "ORCHESTRA"

// Settings holds merged configuration. Later sources override earlier ones:
// defaults < user file < project file < explicit file < environment.
type Settings struct {
	Anthropic AnthropicSettings `mapstructure:"anthropic"`
	Model     ModelSettings     `mapstructure:"model"`
	Run       RunSettings       `mapstructure:"run"`
	Log       LogSettings       `mapstructure:"log"`

	// SkillDirs and AgentDirs are scanned for markdown definitions.
	SkillDirs []string `mapstructure:"skill_dirs"`
	AgentDirs []string `mapstructure:"agent_dirs"`

	// Agents are inline definitions. Presets names built-in ones to add.
	Agents  []Agent  `mapstructure:"agents"`
	Presets []string `mapstructure:"presets"`
}

type AnthropicSettings struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ModelSettings struct {
	Default     string            `mapstructure:"default"`
	Planner     string            `mapstructure:"planner"`
	MaxTokens   int               `mapstructure:"max_tokens"`
	Temperature float64           `mapstructure:"temperature"`
	Tiers       map[string]string `mapstructure:"tiers"`
}

type RunSettings struct {
	MaxTurns       int     `mapstructure:"max_turns"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	TaskRetries    int     `mapstructure:"task_retries"`
	BudgetUSD      float64 `mapstructure:"budget_usd"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// UserDir overrides the user config directory.
	UserDir string
	// ProjectDir is where the project file search starts. Empty means the
	// working directory.
	ProjectDir string
	// File is an explicit settings file. It must exist.
	File string
}

// Load reads and merges settings. Missing user and project files are skipped.
func Load(opts LoadOptions) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	userDir := opts.UserDir
	if userDir == "" {
		userDir = UserConfigDir()
	}
	if err := mergeFile(v, filepath.Join(userDir, "config.yaml"), false); err != nil {
		return nil, err
	}

	if project := findProjectFile(opts.ProjectDir); project != "" {
		if err := mergeFile(v, project, false); err != nil {
			return nil, err
		}
	}

	if opts.File != "" {
		if err := mergeFile(v, opts.File, true); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", EnvPrefix+"_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("anthropic.base_url", EnvPrefix+"_ANTHROPIC_BASE_URL", "ANTHROPIC_BASE_URL")

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	s.Anthropic.APIKey = os.ExpandEnv(s.Anthropic.APIKey)
	return s, nil
}

func mergeFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
		return fmt.Errorf("config: merging %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")

	v.SetDefault("model.default", "")
	v.SetDefault("model.planner", "")
	v.SetDefault("model.max_tokens", 0)
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.tiers", map[string]string{})

	v.SetDefault("run.max_turns", 15)
	v.SetDefault("run.max_concurrency", 4)
	v.SetDefault("run.task_retries", 1)
	v.SetDefault("run.budget_usd", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("skill_dirs", []string{})
	v.SetDefault("agent_dirs", []string{})
	v.SetDefault("presets", []string{})
}

// UserConfigDir returns $XDG_CONFIG_HOME/orchestra or ~/.config/orchestra.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "orchestra")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "orchestra")
	}
	return filepath.Join(home, ".config", "orchestra")
}

// DefaultSkillDirs returns the standard skill directories for projectDir.
func DefaultSkillDirs(projectDir string) []string {
	return []string{
		filepath.Join(UserConfigDir(), "skills"),
		filepath.Join(projectDir, ".orchestra", "skills"),
	}
}

// DefaultAgentDirs returns the standard agent directories for projectDir.
func DefaultAgentDirs(projectDir string) []string {
	return []string{
		filepath.Join(UserConfigDir(), "agents"),
		filepath.Join(projectDir, ".orchestra", "agents"),
	}
}

// findProjectFile searches for ProjectFile in start and its parents.
func findProjectFile(start string) string {
	dir := start
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}
	for {
		path := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ResolveAgents returns the inline agents, then the requested presets, then
// agents loaded from the configured directories. Unknown preset names are an
// error.
func (s *Settings) ResolveAgents() ([]Agent, error) {
	agents := append([]Agent(nil), s.Agents...)
	for _, name := range s.Presets {
		a, ok := GetPreset(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown agent preset %q", name)
		}
		agents = append(agents, a)
	}
	loaded, err := LoadAgents(s.AgentDirs...)
	if err != nil {
		return nil, err
	}
	return append(agents, loaded...), nil
}
