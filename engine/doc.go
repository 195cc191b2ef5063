// Package engine implements the agent trigger-and-evaluation pipeline: the
// minimum-activity gate, per-agent evaluation cycles with asynchronous
// response generation, and the sequential multi-agent runner used on the
// message-creation path.
//
// Concurrency model: message-triggered evaluation for a single inbound
// message runs agents sequentially by design (ordering determines moderation
// priority and keeps activity accounting deterministic). Across agents and
// threads, cycles may run concurrently; the only shared mutable state is each
// agent's own activity counter, mutated solely by that agent's cycle. Per
// agent, at most one response generation is in flight at a time: a periodic
// fire that would overlap a running cycle is skipped, and a contribution
// decided while a prior response is still generating is suppressed, so a slow
// provider plus a subsequent trigger can never produce duplicate
// contributions.
package engine
