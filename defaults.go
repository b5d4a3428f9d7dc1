package orchestra

import "github.com/armatrix/orchestra-go/runner"

const (
	// DefaultMaxConcurrency bounds concurrently running agents in parallel
	// strategies.
	DefaultMaxConcurrency = 4

	// DefaultTaskRetries is how many times a failed, non-cancelled task run
	// is retried.
	DefaultTaskRetries = 1

	// DefaultMaxTurns is the agent turn budget when neither the plan nor the
	// options set one.
	DefaultMaxTurns = runner.DefaultMaxTurns

	// DefaultStreamBufferSize is the channel buffer size for run events.
	DefaultStreamBufferSize = 64

	// DefaultLeadName names the lead created when none is configured.
	DefaultLeadName = "Coordinator"
)
