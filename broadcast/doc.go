// Package broadcast implements live fan-out of newly persisted messages to
// thread subscribers. Delivery is at-most-once with no replay: late
// subscribers see only messages published after they subscribed, and slow
// subscribers have events dropped rather than blocking the publisher. The
// persistence layer remains the durable source of record regardless of live
// delivery.
//
// The Manager serializes subscribe/unsubscribe/publish through a single
// operations channel consumed by one goroutine, avoiding lock contention on
// the subscriber set. A WebSocket gateway exposes a thread's feed to network
// clients.
package broadcast
