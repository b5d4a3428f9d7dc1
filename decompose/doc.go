// Package decompose turns a natural-language request into a validated
// dependency graph of sub-tasks.
//
// The Decomposer asks a model for a JSON plan, repairs and validates it, and
// falls back to a deterministic keyword-based planner when anything goes
// wrong. The heuristic planner always yields a valid plan.
package decompose
