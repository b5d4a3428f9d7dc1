// Package tools is the tool-executor side of agent runs: a registry of typed
// tools whose JSON inputs are schema-checked before dispatch, and the team
// tools agents use to talk to each other while they work.
//
// Register a typed tool:
//
//	reg := tools.NewRegistry()
//	tools.Register(reg, &SearchTool{})
//
// Give an agent its team tools:
//
//	tools.RegisterTeamTools(reg, coordinator, agentID)
package tools
