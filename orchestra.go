package orchestra

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/internal/budget"
	"github.com/armatrix/orchestra-go/internal/ids"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/runner"
	"github.com/armatrix/orchestra-go/synthesis"
	"github.com/armatrix/orchestra-go/teams"
)

// Orchestrator plans and executes requests with a team of agents. It holds
// configuration only; every run gets its own coordinator, so one
// Orchestrator can serve concurrent runs.
type Orchestrator struct {
	opts    options
	log     *zap.Logger
	planner *decompose.Decomposer
	runner  *runner.Runner
	synth   *synthesis.Engine
}

// New creates an Orchestrator with the given options.
func New(opts ...Option) *Orchestrator {
	o := resolveOptions(opts)
	return &Orchestrator{
		opts: o,
		log:  o.logger.Named("orchestra"),
		planner: decompose.New(o.client, decompose.Config{
			Model:    o.model.Merge(o.plannerModel),
			MaxTasks: o.maxPlanTasks,
			Logger:   o.logger,
		}),
		runner: runner.New(runner.Config{
			Client:    o.client,
			Tools:     o.tools,
			Knowledge: o.knowledge,
			Memory:    o.memory,
			Skills:    o.skills,
			Base:      o.model,
			Tiers:     o.tiers,
			Logger:    o.logger,
		}),
		synth: synthesis.New(o.client, synthesis.Config{
			Model:  o.model.Merge(o.synthesisModel),
			Logger: o.logger,
		}),
	}
}

// Plan decomposes prompt without executing it.
func (o *Orchestrator) Plan(ctx context.Context, prompt string) (*decompose.TaskDecomposition, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if o.opts.client == nil {
		return nil, ErrNoProvider
	}
	plan, err := o.planner.Decompose(ctx, prompt, o.analysis())
	if err != nil {
		return nil, err
	}
	if o.opts.strategy != "" {
		plan.Strategy = o.opts.strategy
	}
	return plan, nil
}

// Run starts a run and returns a stream of its events. Configuration errors
// are reported by the stream's Err without any events.
func (o *Orchestrator) Run(ctx context.Context, prompt string) *RunStream {
	if strings.TrimSpace(prompt) == "" {
		return errStream(ErrEmptyPrompt)
	}
	if o.opts.client == nil {
		return errStream(ErrNoProvider)
	}

	s := newStream(o.opts.streamBufferSize)
	emit := func(e Event) {
		select {
		case s.events <- e:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(s.events)
		s.result, s.err = o.run(ctx, prompt, emit)
	}()
	return s
}

// Execute runs prompt to completion, discarding events.
func (o *Orchestrator) Execute(ctx context.Context, prompt string) (*Result, error) {
	stream := o.Run(ctx, prompt)
	for stream.Next() {
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	if stream.Result() == nil {
		return nil, ErrIncompleteRun
	}
	return stream.Result(), nil
}

func (o *Orchestrator) analysis() decompose.Analysis {
	a := decompose.Analysis{Tools: o.opts.tools.Names()}
	for _, t := range o.opts.agents {
		name := t.DisplayName()
		if t.Role != "" {
			name += " (" + t.Role + ")"
		}
		a.Agents = append(a.Agents, name)
	}
	return a
}

func (o *Orchestrator) run(ctx context.Context, prompt string, emit func(Event)) (*Result, error) {
	start := time.Now()
	runID := ids.New(ids.PrefixRun)
	log := o.log.With(zap.String("run_id", runID))

	// 1. Plan
	plan, err := o.Plan(ctx, prompt)
	if err != nil {
		return nil, err
	}
	log.Info("plan ready",
		zap.String("source", string(plan.Source)),
		zap.String("strategy", string(plan.Strategy)),
		zap.Int("tasks", len(plan.Tasks)))
	emit(&PlanEvent{RunID: runID, Plan: plan})

	// 2. Team
	coord := teams.NewCoordinator(teams.WithLogger(o.opts.logger))
	defer coord.Cleanup()
	coord.Subscribe(func(e teams.Event) { emit(&TeamEvent{Event: e}) })

	if _, err := coord.CreateTeam(plan.MainTitle, o.lead(), o.members(plan), prompt); err != nil {
		return nil, fmt.Errorf("orchestra: create team: %w", err)
	}

	x := &execution{
		o:       o,
		ctx:     ctx,
		log:     log,
		emit:    emit,
		prompt:  prompt,
		plan:    plan,
		coord:   coord,
		tasks:   coord.Tasks(),
		tracker: budget.NewTracker(o.opts.maxBudget, nil),
		nodes:   make(map[string]decompose.DecomposedTask),
		records: make(map[string]*TaskResult),
	}
	if plan.Usage != (llm.Usage{}) {
		x.tracker.Record(plan.Usage)
	}

	// 3. Tasks
	if err := x.loadTasks(); err != nil {
		return nil, err
	}
	if x.tasks.HasCircularDependency() {
		return nil, ErrCircularPlan
	}

	// 4. Execute
	if err := x.schedule(); err != nil {
		return nil, err
	}
	x.failRemaining()

	// 5. Deliver
	res := x.result(runID)
	_ = coord.CompleteTeam()
	if team, ok := coord.Team(); ok {
		res.Team = team
	}
	res.Duration = time.Since(start)

	log.Info("run finished",
		zap.Bool("success", res.Success),
		zap.Int("completed", res.Counts.Completed),
		zap.Int("failed", res.Counts.Failed),
		zap.String("cost_usd", res.Cost.StringFixed(4)),
		zap.Duration("duration", res.Duration))
	for _, spend := range x.tracker.PerModel() {
		log.Debug("model spend",
			zap.String("model", spend.Model),
			zap.Int("input_tokens", spend.Usage.InputTokens),
			zap.Int("output_tokens", spend.Usage.OutputTokens),
			zap.String("cost_usd", spend.Cost.StringFixed(4)))
	}
	emit(&ResultEvent{Result: res})
	return res, nil
}

func (o *Orchestrator) lead() teams.Teammate {
	if o.opts.lead != nil {
		return *o.opts.lead
	}
	return teams.Teammate{
		Name:         DefaultLeadName,
		Role:         "team lead",
		Instructions: "You lead a team of specialist agents. Keep the team focused on the goal and answer questions from teammates.",
	}
}

// members returns the configured agents followed by one teammate per distinct
// persona in the plan. A persona sharing a configured agent's name is not
// added.
func (o *Orchestrator) members(plan *decompose.TaskDecomposition) []teams.Teammate {
	seen := make(map[string]bool)
	members := make([]teams.Teammate, 0, len(o.opts.agents)+len(plan.Tasks))
	for _, a := range o.opts.agents {
		seen[strings.ToLower(a.DisplayName())] = true
		members = append(members, a)
	}
	for _, node := range plan.Tasks {
		p := node.SuggestedAgent
		key := strings.ToLower(p.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		members = append(members, teams.Teammate{
			Name:           p.Name,
			Role:           p.Role,
			Tags:           p.Skills,
			Specialization: p.Specialization,
		})
	}
	return members
}

// execution is the state of one run.
type execution struct {
	o      *Orchestrator
	ctx    context.Context
	log    *zap.Logger
	emit   func(Event)
	prompt string
	plan   *decompose.TaskDecomposition

	coord   *teams.Coordinator
	tasks   *teams.SharedTaskList
	tracker *budget.Tracker

	// nodes maps task ids to their plan nodes.
	nodes map[string]decompose.DecomposedTask

	mu      sync.Mutex
	records map[string]*TaskResult
	pinned  *teams.Teammate
}

func (x *execution) loadTasks() error {
	taskIDs := make(map[string]string, len(x.plan.Tasks))
	for _, node := range x.plan.Tasks {
		taskIDs[node.ID] = ids.New(ids.PrefixTask)
	}

	inputs := make([]teams.TaskInput, 0, len(x.plan.Tasks))
	for _, node := range x.plan.Tasks {
		deps := make([]string, 0, len(node.Dependencies))
		for _, d := range node.Dependencies {
			deps = append(deps, taskIDs[d])
		}
		id := taskIDs[node.ID]
		x.nodes[id] = node
		inputs = append(inputs, teams.TaskInput{
			ID:           id,
			Title:        node.Title,
			Description:  node.Description,
			Requirements: node.Requirements,
			DependsOn:    deps,
			Hints: teams.AgentHints{
				RequiredSkills: node.SuggestedAgent.Skills,
				Role:           node.SuggestedAgent.Role,
				Specialization: node.SuggestedAgent.Specialization,
			},
		})
	}
	if _, err := x.coord.AddTasks(inputs); err != nil {
		return fmt.Errorf("orchestra: load plan: %w", err)
	}
	return nil
}

func (x *execution) record(id string) *TaskResult {
	x.mu.Lock()
	defer x.mu.Unlock()
	r, ok := x.records[id]
	if !ok {
		r = &TaskResult{ID: id, PlanID: x.nodes[id].ID}
		x.records[id] = r
	}
	return r
}

// result assembles the final Result from the task list.
func (x *execution) result(runID string) *Result {
	res := &Result{
		RunID:     runID,
		Prompt:    x.prompt,
		Plan:      x.plan,
		Counts:    x.tasks.Counts(),
		Cancelled: x.ctx.Err() != nil,
	}
	if x.plan.FallbackReason != "" {
		res.Warnings = append(res.Warnings, "planner fell back to heuristic plan: "+x.plan.FallbackReason)
	}

	for _, t := range x.tasks.List() {
		tr := *x.record(t.ID)
		tr.Title = t.Title
		tr.Status = t.Status
		tr.Output = t.Output
		tr.Error = t.Error
		res.Tasks = append(res.Tasks, tr)
	}

	x.deliver(res)

	res.Usage = x.tracker.TotalUsage()
	res.Cost = x.tracker.TotalCost()
	res.Success = res.Counts.Total > 0 && res.Counts.Completed == res.Counts.Total && res.Content != ""
	return res
}

// deliver fills the deliverable: a synthesis over every completed output when
// the plan asks for one, otherwise the outputs of the final tasks.
func (x *execution) deliver(res *Result) {
	var completed []synthesis.TaskOutput
	byPlanID := make(map[string]synthesis.TaskOutput)
	for _, t := range res.Tasks {
		if t.Status != teams.StatusCompleted {
			continue
		}
		out := synthesis.TaskOutput{TaskID: t.ID, Title: t.Title, Content: t.Output}
		completed = append(completed, out)
		byPlanID[t.PlanID] = out
	}

	if x.plan.RequiresSynthesis {
		sr := x.o.synth.Synthesize(x.ctx, x.prompt, completed)
		if sr.Usage.InputTokens > 0 || sr.Usage.OutputTokens > 0 {
			x.tracker.Record(sr.Usage)
		}
		x.emit(&SynthesisEvent{Result: sr})
		res.Content = sr.Content
		res.Synthesized = sr.Success && len(completed) > 1
		res.Warnings = append(res.Warnings, sr.Warnings...)
		return
	}

	var finals []synthesis.TaskOutput
	for _, sink := range x.plan.SinkTasks() {
		if out, ok := byPlanID[sink.ID]; ok {
			finals = append(finals, out)
		}
	}
	switch {
	case len(finals) == 1:
		res.Content = finals[0].Content
	case len(finals) > 1:
		res.Content = synthesis.Merge(finals)
	case len(completed) > 0:
		res.Content = synthesis.Merge(completed)
		res.Warnings = append(res.Warnings, "no final task completed; returning intermediate outputs")
	default:
		res.Warnings = append(res.Warnings, "no task completed")
	}
}
