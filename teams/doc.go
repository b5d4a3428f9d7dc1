// Package teams holds the shared coordination state of one agent team: the
// dependency-aware task list, the inter-agent mailbox and the coordinator
// that owns both together with the teammate registry.
//
// All types are safe for concurrent use. Accessors return copies; the
// owning structure keeps the canonical records.
package teams
