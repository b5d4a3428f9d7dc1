package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	orchestra "github.com/armatrix/orchestra-go"
	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/internal/config"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/teams"
	"github.com/armatrix/orchestra-go/tools"
	"github.com/armatrix/orchestra-go/tools/workspace"
)

var errNoAPIKey = errors.New("no Anthropic API key: set ANTHROPIC_API_KEY or anthropic.api_key")

var strategies = map[string]decompose.Strategy{
	"single_agent":      decompose.StrategySingleAgent,
	"sequential_agents": decompose.StrategySequential,
	"parallel_agents":   decompose.StrategyParallel,
	"parallel_isolated": decompose.StrategyParallelIsolated,
	"iterative_deep":    decompose.StrategyIterativeDeep,
}

// runFlags are the orchestration overrides shared by run and plan.
type runFlags struct {
	strategy       string
	maxConcurrency int
	maxTurns       int
	budget         float64
	agents         []string
	workspace      string
}

func (f *runFlags) parseStrategy() (decompose.Strategy, error) {
	if f.strategy == "" {
		return "", nil
	}
	s, ok := strategies[strings.ToLower(strings.ReplaceAll(f.strategy, "-", "_"))]
	if !ok {
		return "", fmt.Errorf("unknown strategy %q", f.strategy)
	}
	return s, nil
}

func loadSettings() (*config.Settings, error) {
	s, err := config.Load(config.LoadOptions{File: configFile})
	if err != nil {
		return nil, err
	}
	cwd, _ := os.Getwd()
	if len(s.SkillDirs) == 0 {
		s.SkillDirs = config.DefaultSkillDirs(cwd)
	}
	if len(s.AgentDirs) == 0 {
		s.AgentDirs = config.DefaultAgentDirs(cwd)
	}
	return s, nil
}

// newLogger builds a production logger at the configured level, or a
// development logger when verbose is set.
func newLogger(s config.LogSettings, verbose bool, level string) (*zap.Logger, error) {
	if level == "" {
		level = s.Level
	}
	cfg := zap.NewProductionConfig()
	if verbose || s.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newClient(s *config.Settings) (llm.Client, error) {
	if s.Anthropic.APIKey == "" {
		return nil, errNoAPIKey
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(s.Anthropic.APIKey)}
	if s.Anthropic.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.Anthropic.BaseURL))
	}
	var opts []llm.AnthropicOption
	if s.Model.Default != "" {
		opts = append(opts, llm.WithDefaultModel(s.Model.Default))
	}
	if s.Model.MaxTokens > 0 {
		opts = append(opts, llm.WithDefaultMaxTokens(s.Model.MaxTokens))
	}
	return llm.NewAnthropic(reqOpts, opts...), nil
}

// buildOptions turns settings and flags into orchestrator options. The
// client is passed separately so tests can substitute a scripted one.
func buildOptions(s *config.Settings, f *runFlags, client llm.Client, log *zap.Logger) ([]orchestra.Option, error) {
	opts := []orchestra.Option{
		orchestra.WithClient(client),
		orchestra.WithLogger(log),
		orchestra.WithMaxConcurrency(s.Run.MaxConcurrency),
		orchestra.WithTaskRetries(s.Run.TaskRetries),
		orchestra.WithMaxTurns(s.Run.MaxTurns),
	}

	model := llm.ModelConfig{Model: s.Model.Default, MaxTokens: s.Model.MaxTokens}
	if s.Model.Temperature > 0 {
		model.Temperature = llm.Temperature(s.Model.Temperature)
	}
	opts = append(opts, orchestra.WithModel(model))
	if s.Model.Planner != "" {
		opts = append(opts, orchestra.WithPlannerModel(llm.ModelConfig{Model: s.Model.Planner}))
	}
	if len(s.Model.Tiers) > 0 {
		tiers := make(map[llm.Tier]string, len(llm.DefaultTierModels))
		for t, m := range llm.DefaultTierModels {
			tiers[t] = m
		}
		for name, m := range s.Model.Tiers {
			t := llm.Tier(strings.ToLower(name))
			if !t.Valid() {
				return nil, fmt.Errorf("unknown model tier %q", name)
			}
			tiers[t] = m
		}
		opts = append(opts, orchestra.WithTiers(tiers))
	}

	budget := s.Run.BudgetUSD
	if f.budget > 0 {
		budget = f.budget
	}
	if budget > 0 {
		opts = append(opts, orchestra.WithBudget(decimal.NewFromFloat(budget)))
	}
	if f.maxConcurrency > 0 {
		opts = append(opts, orchestra.WithMaxConcurrency(f.maxConcurrency))
	}
	if f.maxTurns > 0 {
		opts = append(opts, orchestra.WithMaxTurns(f.maxTurns))
	}
	strategy, err := f.parseStrategy()
	if err != nil {
		return nil, err
	}
	if strategy != "" {
		opts = append(opts, orchestra.WithStrategy(strategy))
	}

	s.Presets = append(s.Presets, f.agents...)
	agents, err := s.ResolveAgents()
	if err != nil {
		return nil, err
	}
	if len(agents) > 0 {
		mates := make([]teams.Teammate, 0, len(agents))
		for _, a := range agents {
			mates = append(mates, a.Teammate())
		}
		opts = append(opts, orchestra.WithAgents(mates...))
	}

	if f.workspace != "" {
		ws, err := workspace.New(f.workspace)
		if err != nil {
			return nil, err
		}
		reg := tools.NewRegistry()
		ws.Register(reg)
		opts = append(opts, orchestra.WithTools(reg))
		log.Debug("workspace tools enabled", zap.String("root", ws.Root))
	}

	skills, err := config.LoadSkills(s.SkillDirs...)
	if err != nil {
		return nil, err
	}
	if len(skills) > 0 {
		log.Debug("skills loaded", zap.Int("count", len(skills)))
		opts = append(opts, orchestra.WithSkills(config.NewCatalog(skills)))
	}
	return opts, nil
}

// newOrchestrator loads settings and builds an orchestrator for a command.
func newOrchestrator(f *runFlags) (*orchestra.Orchestrator, *zap.Logger, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(s.Log, verbose, logLevel)
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(s)
	if err != nil {
		return nil, nil, err
	}
	opts, err := buildOptions(s, f, client, log)
	if err != nil {
		return nil, nil, err
	}
	return orchestra.New(opts...), log, nil
}
