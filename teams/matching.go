package teams

import "strings"

// Weights used when scoring a teammate against a task's hints.
const (
	scoreExactTag     = 3
	scoreRoleOrName   = 2
	scoreInstructions = 1
)

// matchTerms flattens task hints into lowercase search terms.
func matchTerms(h AgentHints) []string {
	raw := make([]string, 0, len(h.RequiredSkills)+2)
	raw = append(raw, h.RequiredSkills...)
	raw = append(raw, h.Role, h.Specialization)

	terms := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			terms = append(terms, s)
		}
	}
	return terms
}

// scoreTeammate sums, per term, +3 for an exact tag match, +2 when the term
// appears in the role or name, and +1 when it appears in the instructions.
func scoreTeammate(t *Teammate, terms []string) int {
	role := strings.ToLower(t.Role)
	name := strings.ToLower(t.Name)
	instructions := strings.ToLower(t.Instructions)

	score := 0
	for _, term := range terms {
		for _, tag := range t.Tags {
			if strings.EqualFold(strings.TrimSpace(tag), term) {
				score += scoreExactTag
				break
			}
		}
		if strings.Contains(role, term) || strings.Contains(name, term) {
			score += scoreRoleOrName
		}
		if strings.Contains(instructions, term) {
			score += scoreInstructions
		}
	}
	return score
}

// bestMatch returns the highest-scoring candidate; ties go to the earliest.
// It returns nil when no candidate scores above zero.
func bestMatch(candidates []*Teammate, h AgentHints) *Teammate {
	terms := matchTerms(h)
	if len(terms) == 0 {
		return nil
	}
	var (
		best      *Teammate
		bestScore int
	)
	for _, c := range candidates {
		if s := scoreTeammate(c, terms); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
