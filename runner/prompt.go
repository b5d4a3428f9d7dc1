package runner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/armatrix/orchestra-go/teams"
)

// Attachment is a named piece of knowledge sent with the user prompt.
type Attachment struct {
	Name    string
	Content string
}

// buildSystemPrompt assembles the agent's base instructions followed by
// whichever context sections are non-empty.
func (r *Runner) buildSystemPrompt(ctx context.Context, in Input) string {
	var sections []string

	sections = append(sections, baseInstructions(in.Agent))

	refs := in.KnowledgeRefs
	if len(refs) == 0 && in.Agent != nil {
		refs = in.Agent.KnowledgeRefs
	}
	if r.cfg.Knowledge != nil && len(refs) > 0 {
		text, err := r.cfg.Knowledge.Knowledge(ctx, refs)
		r.section(&sections, "Knowledge", text, err, "knowledge")
	}

	if r.cfg.Memory != nil && in.Agent != nil {
		text, err := r.cfg.Memory.Memories(ctx, in.Agent, memoryQuery(in))
		r.section(&sections, "Relevant memories", text, err, "memory")
	}

	if r.cfg.Skills != nil && in.Agent != nil && len(in.Agent.SkillIDs) > 0 {
		text, err := r.cfg.Skills.Skills(ctx, in.Agent.SkillIDs)
		r.section(&sections, "Skills", text, err, "skills")
	}

	if in.Task != nil {
		sections = append(sections, taskSection(in.Task))
	}

	if deps := strings.TrimSpace(in.DependencyOutputs); deps != "" {
		sections = append(sections, "## Context from completed tasks\n\n"+deps)
	}

	return strings.Join(sections, "\n\n")
}

// section appends a titled section, dropping it when the source failed or
// returned nothing.
func (r *Runner) section(sections *[]string, title, text string, err error, source string) {
	if err != nil {
		r.log.Warn("context source failed", zap.String("source", source), zap.Error(err))
		return
	}
	if text = strings.TrimSpace(text); text != "" {
		*sections = append(*sections, "## "+title+"\n\n"+text)
	}
}

func baseInstructions(agent *teams.Teammate) string {
	if agent == nil {
		return "You are a helpful assistant working as part of a team of agents."
	}
	if s := strings.TrimSpace(agent.Instructions); s != "" {
		return s
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s", agent.DisplayName())
	if agent.Role != "" {
		fmt.Fprintf(&sb, ", a specialist in %s", agent.Role)
	}
	sb.WriteString(", working as part of a team of agents.")
	if agent.Specialization != "" {
		fmt.Fprintf(&sb, " Your specialization: %s.", agent.Specialization)
	}
	return sb.String()
}

func taskSection(t *teams.Task) string {
	var sb strings.Builder
	sb.WriteString("## Your task\n\n")
	sb.WriteString("**" + t.Title + "**\n")
	if t.Description != "" && t.Description != t.Title {
		sb.WriteString("\n" + t.Description + "\n")
	}
	if len(t.Requirements) > 0 {
		sb.WriteString("\nRequirements:\n")
		for _, req := range t.Requirements {
			sb.WriteString("- " + req + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func memoryQuery(in Input) string {
	if in.Task != nil {
		return in.Task.Title + "\n" + in.Task.Description
	}
	return in.Prompt
}

func userMessage(in Input) string {
	prompt := in.Prompt
	if prompt == "" && in.Task != nil {
		prompt = in.Task.Description
		if prompt == "" {
			prompt = in.Task.Title
		}
	}
	if len(in.Attachments) == 0 {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	for _, a := range in.Attachments {
		fmt.Fprintf(&sb, "\n\n<attachment name=%q>\n%s\n</attachment>", a.Name, a.Content)
	}
	return sb.String()
}
