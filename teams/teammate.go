package teams

// Teammate is an agent persona registered with a team.
type Teammate struct {
	ID             string
	Name           string
	Role           string
	Instructions   string
	Tags           []string
	Specialization string

	// Model overrides the run's default model when set.
	Model string

	// AllowedTools narrows the tool set (glob patterns); empty allows all.
	// DeniedTools removes tools after the allow-list is applied.
	AllowedTools []string
	DeniedTools  []string

	KnowledgeRefs []string
	SkillIDs      []string
}

func (t *Teammate) clone() *Teammate {
	cp := *t
	cp.Tags = cloneStrings(t.Tags)
	cp.AllowedTools = cloneStrings(t.AllowedTools)
	cp.DeniedTools = cloneStrings(t.DeniedTools)
	cp.KnowledgeRefs = cloneStrings(t.KnowledgeRefs)
	cp.SkillIDs = cloneStrings(t.SkillIDs)
	return &cp
}

// DisplayName returns Name, or ID when the teammate is unnamed.
func (t *Teammate) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
