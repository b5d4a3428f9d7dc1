package llm

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Tier is a cost/capability hint attached to a planned task.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierPowerful Tier = "powerful"
)

// DefaultTierModels maps each tier to a concrete model.
var DefaultTierModels = map[Tier]string{
	TierFast:     string(anthropic.ModelClaudeHaiku4_5),
	TierBalanced: string(anthropic.ModelClaudeSonnet4_5),
	TierPowerful: string(anthropic.ModelClaudeOpus4_6),
}

// ParseTier normalizes s to a known tier. Unknown values map to TierBalanced.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierFast:
		return TierFast
	case TierPowerful:
		return TierPowerful
	default:
		return TierBalanced
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierFast || t == TierBalanced || t == TierPowerful
}
