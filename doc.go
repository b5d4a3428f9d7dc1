// Package orchestra runs a team of AI agents against a single request.
//
// An [Orchestrator] decomposes the request into a dependency graph of
// sub-tasks, forms a team whose members match the planned personas, runs one
// agent per ready task according to the plan's strategy, and merges the task
// outputs into one deliverable.
//
// # Quick Start
//
//	o := orchestra.New(orchestra.WithAnthropic())
//	stream := o.Run(ctx, "Compare Postgres and MySQL for a write-heavy workload")
//	for stream.Next() {
//	    switch e := stream.Current().(type) {
//	    case *orchestra.TaskDoneEvent:
//	        fmt.Println("done:", e.Title)
//	    case *orchestra.ResultEvent:
//	        fmt.Println(e.Result.Content)
//	    }
//	}
//	if err := stream.Err(); err != nil {
//	    // configuration error
//	}
//
// # Sub-packages
//
//   - [teams] holds the shared task list, mailbox and team coordinator.
//   - [decompose] plans requests, with a heuristic fallback.
//   - [runner] executes one task through one agent.
//   - [synthesis] merges task outputs.
//   - [tools] is the tool registry, including the team communication tools.
//   - [llm] is the inference contract and its Anthropic implementation.
package orchestra
