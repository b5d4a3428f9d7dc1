// Package ids generates prefixed, time-ordered identifiers.
package ids

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Prefixes for the entity kinds the orchestrator creates.
const (
	PrefixRun      = "run"
	PrefixTeam     = "team"
	PrefixTask     = "task"
	PrefixAgent    = "agt"
	PrefixMessage  = "msg"
	PrefixToolCall = "call"
)

// New produces a unique identifier with the given prefix and embedded timestamp.
// Format: {prefix}_{YYYYMMDDTHHmmss}_{16 hex chars}  e.g. "task_20260208T150405_a1b2c3d4e5f6a7b8"
func New(prefix string) string {
	ts := time.Now().UTC().Format("20060102T150405")
	u := uuid.New()
	return prefix + "_" + ts + "_" + hex.EncodeToString(u[:8])
}
