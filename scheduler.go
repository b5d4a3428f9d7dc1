package orchestra

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/armatrix/orchestra-go/decompose"
	"github.com/armatrix/orchestra-go/llm"
	"github.com/armatrix/orchestra-go/runner"
	"github.com/armatrix/orchestra-go/teams"
	"github.com/armatrix/orchestra-go/tools"
)

// schedule runs ready tasks until none remain. Parallel strategies run up to
// maxConcurrency tasks at once; the others run one task at a time.
func (x *execution) schedule() error {
	switch x.plan.Strategy {
	case decompose.StrategyParallel, decompose.StrategyParallelIsolated:
		if x.o.opts.maxConcurrency > 1 {
			return x.runParallel(x.o.opts.maxConcurrency)
		}
	}
	return x.runSequential()
}

func (x *execution) runSequential() error {
	for !x.halted(x.ctx) {
		ready := x.tasks.ReadyTasks()
		if len(ready) == 0 {
			if len(x.failUnreachable()) > 0 {
				continue
			}
			return nil
		}
		if err := x.execute(x.ctx, ready[0].ID); err != nil {
			return err
		}
	}
	return nil
}

func (x *execution) runParallel(limit int) error {
	g, gctx := errgroup.WithContext(x.ctx)
	g.SetLimit(limit)

	done := make(chan struct{}, len(x.nodes))
	launched := make(map[string]bool)
	inflight := 0

	for {
		if !x.halted(gctx) {
			for _, t := range x.tasks.ReadyTasks() {
				if launched[t.ID] {
					continue
				}
				launched[t.ID] = true
				inflight++
				id := t.ID
				g.Go(func() error {
					defer func() { done <- struct{}{} }()
					return x.execute(gctx, id)
				})
			}
		}
		if inflight == 0 {
			if !x.halted(gctx) && len(x.failUnreachable()) > 0 {
				continue
			}
			break
		}
		<-done
		inflight--
	}
	return g.Wait()
}

// halted reports whether no new task may start.
func (x *execution) halted(ctx context.Context) bool {
	return ctx.Err() != nil || x.tracker.Exhausted()
}

func (x *execution) failUnreachable() []*teams.Task {
	failed := x.tasks.FailUnreachable()
	for _, t := range failed {
		x.emit(&TaskDoneEvent{TaskID: t.ID, Title: t.Title, Status: t.Status, Error: t.Error})
	}
	return failed
}

// failRemaining fails every task still pending so the list terminates.
func (x *execution) failRemaining() {
	reason := "not reachable"
	switch {
	case x.ctx.Err() != nil:
		reason = "run cancelled"
	case x.tracker.Exhausted():
		reason = "budget exhausted"
	}
	for _, t := range x.tasks.List() {
		if t.Status != teams.StatusPending {
			continue
		}
		if err := x.tasks.FailTask(t.ID, reason); err == nil {
			x.emit(&TaskDoneEvent{TaskID: t.ID, Title: t.Title, Status: teams.StatusFailed, Error: reason})
		}
	}
}

// assign picks the teammate for a task. Single-agent plans reuse the first
// assignment for every task.
func (x *execution) assign(task *teams.Task) (*teams.Teammate, bool) {
	if x.plan.Strategy != decompose.StrategySingleAgent {
		return x.coord.BestTeammateForTask(task)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.pinned == nil {
		mate, ok := x.coord.BestTeammateForTask(task)
		if !ok {
			return nil, false
		}
		x.pinned = mate
	}
	return x.pinned, true
}

// execute claims and runs one task, retrying failed runs. The only error is
// a configuration error from the runner.
func (x *execution) execute(ctx context.Context, id string) error {
	task, ok := x.tasks.Get(id)
	if !ok {
		return nil
	}
	node := x.nodes[id]
	mate, ok := x.assign(task)
	if !ok {
		_ = x.tasks.FailTask(id, "no teammate available")
		return nil
	}
	if !x.tasks.ClaimTask(id, mate.ID) {
		return nil
	}

	log := x.log.With(zap.String("task_id", id), zap.String("agent", mate.DisplayName()))
	rec := x.record(id)
	x.mu.Lock()
	rec.AgentID, rec.AgentName = mate.ID, mate.DisplayName()
	x.mu.Unlock()

	in := x.input(task, node, mate)
	attempts := 1 + x.o.opts.taskRetries

	var res *runner.Result
	for attempt := 1; attempt <= attempts; attempt++ {
		x.emit(&TaskStartEvent{
			TaskID:    id,
			Title:     task.Title,
			AgentID:   mate.ID,
			AgentName: mate.DisplayName(),
			Attempt:   attempt,
			Mode:      node.ExecutionMode,
		})

		var err error
		if node.ExecutionMode == decompose.ModeSingleShot {
			res, err = x.o.runner.RunSingleShot(ctx, in)
		} else {
			res, err = x.o.runner.Run(ctx, in)
		}
		if err != nil {
			_ = x.tasks.FailTask(id, err.Error())
			return err
		}
		x.recordUsage(res)
		if x.tracker.Exhausted() {
			log.Warn("budget exhausted", zap.String("remaining_usd", x.tracker.Remaining().StringFixed(4)))
		}

		x.mu.Lock()
		rec.Attempts = attempt
		rec.Turns += res.TurnsUsed
		rec.Cancelled = res.Cancelled
		x.mu.Unlock()

		if res.Success || res.Cancelled || ctx.Err() != nil || x.tracker.Exhausted() {
			break
		}
		if attempt < attempts {
			log.Warn("task attempt failed, retrying", zap.Int("attempt", attempt), zap.Strings("errors", res.Errors))
		}
	}

	if res.Success {
		if err := x.tasks.CompleteTask(id, res.Response); err != nil {
			log.Error("complete task", zap.Error(err))
		}
		x.emit(&TaskDoneEvent{TaskID: id, Title: task.Title, Status: teams.StatusCompleted, Result: res})
		return nil
	}

	errText := strings.Join(res.Errors, "; ")
	if errText == "" {
		errText = "agent run failed"
	}
	if err := x.tasks.FailTask(id, errText); err != nil {
		log.Error("fail task", zap.Error(err))
	}
	log.Warn("task failed", zap.String("error", errText))
	x.emit(&TaskDoneEvent{TaskID: id, Title: task.Title, Status: teams.StatusFailed, Result: res, Error: errText})
	return nil
}

func (x *execution) recordUsage(res *runner.Result) {
	u := res.Usage
	if u.Model == "" {
		u.Model = res.Model
	}
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return
	}
	x.tracker.Record(u)
}

// input builds the runner input for a task: the plan node's scope and tier,
// upstream outputs and a per-agent tool registry.
func (x *execution) input(task *teams.Task, node decompose.DecomposedTask, mate *teams.Teammate) runner.Input {
	scope := runner.Scope{MaxTurns: x.o.opts.maxTurns, Tier: node.ModelTier}
	if ps := node.SuggestedAgent.Scope; ps != nil {
		if ps.MaxTurns > 0 {
			scope.MaxTurns = ps.MaxTurns
		}
		scope.AllowedTools = ps.AllowedTools
		scope.DeniedTools = ps.DeniedTools
		scope.Model = llm.ModelConfig{Temperature: ps.Temperature}
	}
	if x.plan.Strategy == decompose.StrategyIterativeDeep {
		scope.MaxTurns *= 2
	}

	reg := x.o.opts.tools.Clone()
	if x.plan.Strategy != decompose.StrategyParallelIsolated {
		tools.RegisterTeamTools(reg, x.coord, mate.ID)
	}

	id := task.ID
	return runner.Input{
		Task:              task,
		Agent:             mate,
		Scope:             scope,
		DependencyOutputs: x.tasks.DependencyOutputs(id),
		Tools:             reg,
		OnProgress: func(p runner.Progress) {
			x.emit(&TaskProgressEvent{TaskID: id, Progress: p})
		},
		OnDelta: func(delta string) {
			x.emit(&TaskStreamEvent{TaskID: id, Delta: delta})
		},
	}
}
