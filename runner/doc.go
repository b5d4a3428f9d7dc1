// Package runner executes one task through one agent.
//
// Run drives the iterative loop: the model reasons, optionally calls tools,
// observes their results and decides whether to continue, until it answers
// without calling a tool or the turn budget is spent. RunSingleShot makes a
// single streamed call without tools for cheap tasks.
//
// Cancellation is cooperative. The context is checked at the top of every
// turn and a cancelled run returns a Result with Cancelled set rather than an
// error.
package runner
