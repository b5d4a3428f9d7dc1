package decompose

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. Returned errors wrap one of these and name the offending
// task.
var (
	ErrEmptyPlan          = errors.New("decompose: plan has no tasks")
	ErrDuplicateTask      = errors.New("decompose: duplicate task id")
	ErrUnknownDependency  = errors.New("decompose: unknown dependency")
	ErrCircularDependency = errors.New("decompose: circular dependency")
)

// Validate checks that a plan is non-empty, ids are unique, every dependency
// names a task in the plan and the dependency graph is acyclic.
func Validate(d *TaskDecomposition) error {
	if d == nil || len(d.Tasks) == 0 {
		return ErrEmptyPlan
	}

	byID := make(map[string]*DecomposedTask, len(d.Tasks))
	for i := range d.Tasks {
		t := &d.Tasks[i]
		if _, dup := byID[t.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTask, t.ID)
		}
		byID[t.ID] = t
	}
	for _, t := range d.Tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("%w: task %q depends on %q", ErrUnknownDependency, t.ID, dep)
			}
		}
	}

	state := make(map[string]int) // 0=unvisited, 1=visiting, 2=visited
	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case 2:
			return nil
		case 1:
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle := append(path[start:], id)
			return fmt.Errorf("%w at task %q: %s", ErrCircularDependency, id, strings.Join(cycle, " -> "))
		}
		state[id] = 1
		for _, dep := range byID[id].Dependencies {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = 2
		return nil
	}
	for _, t := range d.Tasks {
		if err := visit(t.ID, nil); err != nil {
			return err
		}
	}
	return nil
}
