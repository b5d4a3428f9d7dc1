package decompose

import (
	"fmt"
	"strings"
	"sync"

	"github.com/armatrix/orchestra-go/internal/schema"
)

// Analysis is optional context about the request gathered before planning.
type Analysis struct {
	Intent     string
	Domain     string
	Complexity string
	Keywords   []string
	// Agents and Tools list what the executing team has available.
	Agents []string
	Tools  []string
	Notes  string
}

func (a Analysis) empty() bool {
	return a.Intent == "" && a.Domain == "" && a.Complexity == "" && a.Notes == "" &&
		len(a.Keywords) == 0 && len(a.Agents) == 0 && len(a.Tools) == 0
}

var planSchema = sync.OnceValue(func() string {
	doc, err := schema.Document[TaskDecomposition]()
	if err != nil {
		return "{}"
	}
	return string(doc)
})

const systemPromptHeader = `You are a planning engine for a team of AI agents. Break the user's request into a small graph of sub-tasks that specialist agents can execute.

Rules:
- Use between 1 and %d tasks. Prefer fewer tasks for simple requests.
- Task ids are short plan-local ids such as t1, t2.
- Every description must be self-contained. The agent executing a task never sees the original request.
- dependencies lists the ids of tasks whose output this task needs. The graph must be acyclic.
- Mark tasks parallelizable when they do not depend on each other.
- Use executionMode "single-shot" for simple writing or reasoning and "iterative" when tools or several steps are needed.
- modelTier is a cost hint: fast, balanced or powerful.
- Set requiresSynthesis when the final answer must merge several independent outputs.
- Respond with a single JSON object matching the schema below and nothing else.

Schema:
`

func systemPrompt(maxTasks int) string {
	return fmt.Sprintf(systemPromptHeader, maxTasks) + planSchema()
}

func userPrompt(prompt string, a Analysis) string {
	var sb strings.Builder
	sb.WriteString("Request:\n")
	sb.WriteString(strings.TrimSpace(prompt))
	if a.empty() {
		return sb.String()
	}

	sb.WriteString("\n\nAnalysis:\n")
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", label, v)
		}
	}
	line("Intent", a.Intent)
	line("Domain", a.Domain)
	line("Complexity", a.Complexity)
	line("Keywords", strings.Join(a.Keywords, ", "))
	line("Available agents", strings.Join(a.Agents, ", "))
	line("Available tools", strings.Join(a.Tools, ", "))
	line("Notes", a.Notes)
	return strings.TrimRight(sb.String(), "\n")
}
