package orchestra

import (
	"errors"

	"github.com/armatrix/orchestra-go/llm"
)

// Sentinel errors returned by Orchestrator operations.
var (
	// ErrNoProvider is returned when no inference client is configured.
	ErrNoProvider = llm.ErrNoProvider

	ErrEmptyPrompt   = errors.New("orchestra: empty prompt")
	ErrCircularPlan  = errors.New("orchestra: plan has a circular dependency")
	ErrIncompleteRun = errors.New("orchestra: run ended without a result")
)
