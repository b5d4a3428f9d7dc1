package config

import "strings"

// Presets are built-in agent definitions selectable by name.
var Presets = map[string]Agent{
	"researcher": {
		Name:         "Researcher",
		Role:         "research",
		Tags:         []string{"research", "search", "sources"},
		Instructions: "You are a careful researcher. Gather accurate information, cite where it came from and flag uncertainty.",
	},
	"writer": {
		Name:         "Writer",
		Role:         "writing",
		Tags:         []string{"writing", "editing", "summarization"},
		Instructions: "You are a clear, concise writer. Turn material into well-structured prose for the intended audience.",
	},
	"developer": {
		Name:         "Developer",
		Role:         "software development",
		Tags:         []string{"coding", "implementation", "debugging"},
		Instructions: "You are a pragmatic software engineer. Write complete, working code and explain only what is non-obvious.",
	},
	"reviewer": {
		Name:         "Reviewer",
		Role:         "review",
		Tags:         []string{"review", "testing", "quality"},
		Instructions: "You are a critical reviewer. Find errors, gaps and risks, then propose concrete fixes.",
	},
	"analyst": {
		Name:         "Analyst",
		Role:         "analysis",
		Tags:         []string{"analysis", "data", "statistics"},
		Instructions: "You are an analyst. Break problems down, quantify where possible and state your assumptions.",
	},
}

// GetPreset returns the preset with the given name, case-insensitively.
func GetPreset(name string) (Agent, bool) {
	a, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}
