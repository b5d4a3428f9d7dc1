package runner

import (
	"context"

	"github.com/armatrix/orchestra-go/teams"
)

// KnowledgeSource returns knowledge text for the given references.
type KnowledgeSource interface {
	Knowledge(ctx context.Context, refs []string) (string, error)
}

// MemorySource returns memories relevant to an agent working on a query.
type MemorySource interface {
	Memories(ctx context.Context, agent *teams.Teammate, query string) (string, error)
}

// SkillSource returns the instruction text of the given skills.
type SkillSource interface {
	Skills(ctx context.Context, ids []string) (string, error)
}

// KnowledgeFunc adapts a function to KnowledgeSource.
type KnowledgeFunc func(ctx context.Context, refs []string) (string, error)

func (f KnowledgeFunc) Knowledge(ctx context.Context, refs []string) (string, error) {
	return f(ctx, refs)
}

// MemoryFunc adapts a function to MemorySource.
type MemoryFunc func(ctx context.Context, agent *teams.Teammate, query string) (string, error)

func (f MemoryFunc) Memories(ctx context.Context, agent *teams.Teammate, query string) (string, error) {
	return f(ctx, agent, query)
}

// SkillFunc adapts a function to SkillSource.
type SkillFunc func(ctx context.Context, ids []string) (string, error)

func (f SkillFunc) Skills(ctx context.Context, ids []string) (string, error) {
	return f(ctx, ids)
}
