package decompose

import (
	"fmt"
	"strings"

	"github.com/armatrix/orchestra-go/llm"
)

// Category is the kind of request the heuristic planner recognized.
type Category string

const (
	CategoryResearch    Category = "research"
	CategoryCreative    Category = "creative"
	CategoryDevelopment Category = "development"
	CategoryAnalysis    Category = "analysis"
	CategoryGeneric     Category = "generic"
)

type rule struct {
	category Category
	keywords []string
	build    func(prompt string) []DecomposedTask
	strategy Strategy
	merge    bool
}

// rules is checked in order; the category with the most keyword hits wins and
// ties go to the earlier rule.
var rules = []rule{
	{
		category: CategoryResearch,
		keywords: []string{"research", "investigat", "find", "source", "compar", "study", "survey", "explor", "history", "learn"},
		build:    researchPipeline,
		strategy: StrategySequential,
	},
	{
		category: CategoryDevelopment,
		keywords: []string{"code", "build", "implement", "develop", "program", "api", "app", "function", "bug", "deploy", "refactor", "test"},
		build:    developmentPipeline,
		strategy: StrategySequential,
	},
	{
		category: CategoryAnalysis,
		keywords: []string{"analy", "evaluat", "assess", "data", "metric", "trend", "review", "statistic", "measur", "forecast"},
		build:    analysisPipeline,
		strategy: StrategyParallel,
		merge:    true,
	},
	{
		category: CategoryCreative,
		keywords: []string{"write", "story", "poem", "blog", "essay", "creativ", "draft", "slogan", "novel", "article", "lyrics"},
		build:    creativePipeline,
		strategy: StrategySequential,
	},
}

// Classify returns the category of prompt by keyword matching on word
// prefixes.
func Classify(prompt string) Category {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	best, bestHits := CategoryGeneric, 0
	for _, r := range rules {
		hits := 0
		for _, w := range words {
			for _, kw := range r.keywords {
				if strings.HasPrefix(w, kw) {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = r.category, hits
		}
	}
	return best
}

// Heuristic builds a fixed pipeline for prompt from its category. The result
// always validates.
func Heuristic(prompt string) *TaskDecomposition {
	cat := Classify(prompt)

	var (
		tasks    []DecomposedTask
		strategy = StrategySequential
		merge    bool
	)
	for _, r := range rules {
		if r.category == cat {
			tasks, strategy, merge = r.build(prompt), r.strategy, r.merge
			break
		}
	}
	if tasks == nil {
		tasks = genericPipeline(prompt)
	}

	return &TaskDecomposition{
		MainTitle:         shorten(prompt, 60),
		MainDescription:   prompt,
		Tasks:             tasks,
		RequiresSynthesis: merge,
		Strategy:          strategy,
		EstimatedDuration: fmt.Sprintf("%d-%d minutes", 2*len(tasks), 5*len(tasks)),
		Source:            SourceHeuristic,
	}
}

func node(id, title, instructions, prompt string, deps []string, mode ExecutionMode, tier llm.Tier, persona Persona) DecomposedTask {
	complexity := ComplexitySimple
	if mode == ModeIterative {
		complexity = ComplexityComplex
	}
	t := DecomposedTask{
		ID:             id,
		Title:          title,
		Description:    fmt.Sprintf("%s\n\nOriginal request: %s", instructions, prompt),
		Complexity:     complexity,
		Dependencies:   deps,
		Parallelizable: len(deps) == 0,
		ExecutionMode:  mode,
		ModelTier:      tier,
		SuggestedAgent: persona,
		IOContract:     IOContract{Outputs: []string{id + "_output"}},
	}
	for _, dep := range deps {
		t.IOContract.Inputs = append(t.IOContract.Inputs, IOInput{Name: dep + "_output", From: dep})
	}
	return t
}

func researchPipeline(prompt string) []DecomposedTask {
	return []DecomposedTask{
		node("t1", "Gather information",
			"Collect accurate, relevant information and sources for the request. Note where sources disagree.",
			prompt, nil, ModeIterative, llm.TierBalanced,
			Persona{Name: "Researcher", Role: "research", Skills: []string{"research", "search", "sources"}}),
		node("t2", "Analyze findings",
			"Analyze the gathered information. Identify the key findings, patterns and open questions.",
			prompt, []string{"t1"}, ModeSingleShot, llm.TierBalanced,
			Persona{Name: "Analyst", Role: "analysis", Skills: []string{"analysis", "critical thinking"}}),
		node("t3", "Write research summary",
			"Write a clear, well-structured answer to the request based on the analysis.",
			prompt, []string{"t2"}, ModeSingleShot, llm.TierBalanced,
			Persona{Name: "Writer", Role: "writing", Skills: []string{"writing", "summarization"}}),
	}
}

func developmentPipeline(prompt string) []DecomposedTask {
	return []DecomposedTask{
		node("t1", "Design the solution",
			"Design an approach: components, interfaces, data flow and risks.",
			prompt, nil, ModeSingleShot, llm.TierBalanced,
			Persona{Name: "Architect", Role: "software architecture", Skills: []string{"design", "architecture"}}),
		node("t2", "Implement the solution",
			"Implement the design with complete, working code.",
			prompt, []string{"t1"}, ModeIterative, llm.TierPowerful,
			Persona{Name: "Developer", Role: "software development", Skills: []string{"coding", "implementation"}}),
		node("t3", "Review the implementation",
			"Review the implementation for bugs, edge cases and clarity. Return the corrected final version.",
			prompt, []string{"t2"}, ModeIterative, llm.TierBalanced,
			Persona{Name: "Reviewer", Role: "code review", Skills: []string{"review", "testing"}}),
	}
}

func analysisPipeline(prompt string) []DecomposedTask {
	return []DecomposedTask{
		node("t1", "Quantitative analysis",
			"Analyze the measurable aspects of the request: numbers, metrics and trends.",
			prompt, nil, ModeIterative, llm.TierBalanced,
			Persona{Name: "Data Analyst", Role: "quantitative analysis", Skills: []string{"data", "statistics", "metrics"}}),
		node("t2", "Qualitative assessment",
			"Assess the qualitative aspects of the request: context, risks and implications.",
			prompt, nil, ModeIterative, llm.TierBalanced,
			Persona{Name: "Strategist", Role: "qualitative analysis", Skills: []string{"assessment", "strategy"}}),
	}
}

func creativePipeline(prompt string) []DecomposedTask {
	return []DecomposedTask{
		node("t1", "Develop concept and outline",
			"Develop the concept, tone and an outline for the piece.",
			prompt, nil, ModeSingleShot, llm.TierFast,
			Persona{Name: "Planner", Role: "creative planning", Skills: []string{"brainstorming", "outlining"}}),
		node("t2", "Write the draft",
			"Write the full piece following the outline.",
			prompt, []string{"t1"}, ModeSingleShot, llm.TierPowerful,
			Persona{Name: "Writer", Role: "creative writing", Skills: []string{"writing", "storytelling"}}),
		node("t3", "Edit and polish",
			"Edit the draft for flow, style and correctness. Return only the final polished piece.",
			prompt, []string{"t2"}, ModeSingleShot, llm.TierFast,
			Persona{Name: "Editor", Role: "editing", Skills: []string{"editing", "proofreading"}}),
	}
}

func genericPipeline(prompt string) []DecomposedTask {
	return []DecomposedTask{
		node("t1", "Understand the request",
			"Work out what is being asked, the constraints, and a plan for answering.",
			prompt, nil, ModeSingleShot, llm.TierFast,
			Persona{Name: "Planner", Role: "planning", Skills: []string{"planning"}}),
		node("t2", "Produce the response",
			"Carry out the plan and produce a complete response to the request.",
			prompt, []string{"t1"}, ModeIterative, llm.TierBalanced,
			Persona{Name: "Generalist", Role: "general assistance", Skills: []string{"problem solving"}}),
	}
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
