// Package core provides the foundational domain types and interfaces used by
// Convene. It defines the core abstractions for:
//
//   - Threads (multi-party conversations that may host autonomous agents)
//   - Messages (user- or agent-authored contributions with visibility flags)
//   - Agents (configured autonomous participants bound to a thread)
//   - AgentTypes (immutable behavior descriptors shared by agent instances)
//   - Triggers and Evaluations (the contract between the engine and behaviors)
//   - Pluggable collaborators for persistence, broadcasting and job scheduling
//
// The package intentionally keeps implementation concerns (storage backends,
// the evaluation engine, concrete behaviors) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
