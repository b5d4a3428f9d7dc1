package teams

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/armatrix/orchestra-go/internal/ids"
)

// SharedTaskList is a concurrent-safe, dependency-aware task list shared by
// every member of a team.
type SharedTaskList struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string

	// claiming holds a token per task id while a claim is checked and applied.
	claiming sync.Map

	obs observers
}

// NewSharedTaskList creates an empty task list.
func NewSharedTaskList() *SharedTaskList {
	return &SharedTaskList{
		tasks: make(map[string]*Task),
	}
}

// Subscribe registers fn for task events and returns a function that removes it.
func (l *SharedTaskList) Subscribe(fn Listener) func() {
	return l.obs.subscribe(fn)
}

// AddTask creates a pending task.
func (l *SharedTaskList) AddTask(in TaskInput) (*Task, error) {
	added, err := l.AddTasks([]TaskInput{in})
	if err != nil {
		return nil, err
	}
	return added[0], nil
}

// AddTasks creates a batch of pending tasks. Dependencies may reference tasks
// already in the list or earlier or later entries of the same batch. The
// batch is applied atomically.
func (l *SharedTaskList) AddTasks(inputs []TaskInput) ([]*Task, error) {
	now := time.Now()

	l.mu.Lock()
	batch := make(map[string]bool, len(inputs))
	created := make([]*Task, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" {
			id = ids.New(ids.PrefixTask)
		}
		if _, exists := l.tasks[id]; exists || batch[id] {
			l.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, id)
		}
		batch[id] = true
		created = append(created, &Task{
			ID:           id,
			Title:        in.Title,
			Description:  in.Description,
			Requirements: cloneStrings(in.Requirements),
			Status:       StatusPending,
			DependsOn:    cloneStrings(in.DependsOn),
			Hints: AgentHints{
				RequiredSkills: cloneStrings(in.Hints.RequiredSkills),
				Role:           in.Hints.Role,
				Specialization: in.Hints.Specialization,
			},
			CreatedAt: now,
		})
	}
	for _, t := range created {
		for _, dep := range t.DependsOn {
			if _, exists := l.tasks[dep]; !exists && !batch[dep] {
				l.mu.Unlock()
				return nil, fmt.Errorf("%w: task %q depends on %q", ErrUnknownDependency, t.Title, dep)
			}
		}
	}

	snaps := make([]*Task, len(created))
	for i, t := range created {
		l.tasks[t.ID] = t
		l.order = append(l.order, t.ID)
		snaps[i] = t.clone()
	}
	l.mu.Unlock()

	for _, t := range snaps {
		l.obs.emit(Event{Type: EventTaskAdded, Task: t.clone()})
	}
	return snaps, nil
}

// ClaimTask assigns a pending task whose dependencies are all completed to
// agentID. It reports false, with no side effect, when the task does not
// exist, is not pending, is being claimed concurrently, or still has
// unsatisfied dependencies.
func (l *SharedTaskList) ClaimTask(taskID, agentID string) bool {
	if _, busy := l.claiming.LoadOrStore(taskID, agentID); busy {
		return false
	}
	defer l.claiming.Delete(taskID)

	l.mu.Lock()
	t, ok := l.tasks[taskID]
	if !ok || t.Status != StatusPending || !l.depsSatisfied(t) {
		l.mu.Unlock()
		return false
	}
	t.Status = StatusInProgress
	t.ClaimedBy = agentID
	t.ClaimedAt = time.Now()
	snap := t.clone()
	l.mu.Unlock()

	l.obs.emit(Event{Type: EventTaskClaimed, Task: snap})
	return true
}

// CompleteTask marks an in-progress task completed with output, then emits
// tasks-unblocked with every pending dependent that became ready.
func (l *SharedTaskList) CompleteTask(taskID, output string) error {
	l.mu.Lock()
	t, ok := l.tasks[taskID]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	if t.Status != StatusInProgress {
		l.mu.Unlock()
		return fmt.Errorf("%w: complete %q from %s", ErrInvalidTransition, taskID, t.Status)
	}
	t.Status = StatusCompleted
	t.Output = output
	t.CompletedAt = time.Now()
	snap := t.clone()

	var unblocked []*Task
	for _, id := range l.order {
		p := l.tasks[id]
		if p.Status == StatusPending && containsString(p.DependsOn, taskID) && l.depsSatisfied(p) {
			unblocked = append(unblocked, p.clone())
		}
	}
	l.mu.Unlock()

	l.obs.emit(Event{Type: EventTaskCompleted, Task: snap})
	if len(unblocked) > 0 {
		l.obs.emit(Event{Type: EventTasksUnblocked, Unblocked: unblocked})
	}
	return nil
}

// FailTask marks a pending or in-progress task failed.
func (l *SharedTaskList) FailTask(taskID, errText string) error {
	l.mu.Lock()
	t, ok := l.tasks[taskID]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	if t.Status.Terminal() {
		l.mu.Unlock()
		return fmt.Errorf("%w: fail %q from %s", ErrInvalidTransition, taskID, t.Status)
	}
	t.Status = StatusFailed
	t.Error = errText
	t.CompletedAt = time.Now()
	snap := t.clone()
	l.mu.Unlock()

	l.obs.emit(Event{Type: EventTaskFailed, Task: snap})
	return nil
}

// FailUnreachable fails every pending task that transitively depends on a
// failed task and returns them in list order.
func (l *SharedTaskList) FailUnreachable() []*Task {
	var failed []*Task
	for {
		l.mu.RLock()
		var victim *Task
		var cause string
		for _, id := range l.order {
			t := l.tasks[id]
			if t.Status != StatusPending {
				continue
			}
			for _, dep := range t.DependsOn {
				if d, ok := l.tasks[dep]; ok && d.Status == StatusFailed {
					victim, cause = t, d.Title
					break
				}
			}
			if victim != nil {
				break
			}
		}
		l.mu.RUnlock()

		if victim == nil {
			return failed
		}
		if err := l.FailTask(victim.ID, fmt.Sprintf("dependency %q failed", cause)); err == nil {
			if t, ok := l.Get(victim.ID); ok {
				failed = append(failed, t)
			}
		}
	}
}

// ReadyTasks returns pending tasks whose dependencies are all completed, in
// insertion order.
func (l *SharedTaskList) ReadyTasks() []*Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ready []*Task
	for _, id := range l.order {
		t := l.tasks[id]
		if t.Status == StatusPending && l.depsSatisfied(t) {
			ready = append(ready, t.clone())
		}
	}
	return ready
}

// DependencyOutputs concatenates the outputs of the completed dependencies of
// taskID, each under a heading naming the dependency.
func (l *SharedTaskList) DependencyOutputs(taskID string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tasks[taskID]
	if !ok {
		return ""
	}
	var parts []string
	for _, dep := range t.DependsOn {
		d, ok := l.tasks[dep]
		if !ok || d.Status != StatusCompleted {
			continue
		}
		parts = append(parts, fmt.Sprintf("### %s\n%s", d.Title, d.Output))
	}
	return strings.Join(parts, "\n\n")
}

// HasCircularDependency reports whether the dependency graph contains a cycle.
func (l *SharedTaskList) HasCircularDependency() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(l.tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case visited:
			return false
		}
		state[id] = visiting
		if t, ok := l.tasks[id]; ok {
			for _, dep := range t.DependsOn {
				if _, exists := l.tasks[dep]; exists && visit(dep) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range l.order {
		if visit(id) {
			return true
		}
	}
	return false
}

// IsComplete reports whether every task is completed or failed. An empty
// list is complete.
func (l *SharedTaskList) IsComplete() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Get returns a copy of the task with the given id.
func (l *SharedTaskList) Get(taskID string) (*Task, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// List returns copies of all tasks in insertion order.
func (l *SharedTaskList) List() []*Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Task, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.tasks[id].clone())
	}
	return out
}

// Counts summarizes the list by status.
func (l *SharedTaskList) Counts() TaskCounts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := TaskCounts{Total: len(l.tasks)}
	for _, t := range l.tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Clear removes every task. Subscribers stay registered.
func (l *SharedTaskList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = make(map[string]*Task)
	l.order = nil
}

// depsSatisfied must be called with l.mu held.
func (l *SharedTaskList) depsSatisfied(t *Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := l.tasks[dep]
		if !ok || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
