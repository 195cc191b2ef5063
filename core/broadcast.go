package core

// EventMessageNew is the broadcast event name for a newly created message.
const EventMessageNew = "message:new"

// Broadcaster is the live-delivery collaborator. Publish delivers a persisted
// message to all current subscribers of the thread's channel, at most once
// per message, with no replay for late subscribers. Delivery failures are
// non-fatal and not retried; the message remains durably available via the
// Store regardless of live delivery.
type Broadcaster interface {
	Publish(threadID, event string, msg Message)
}

// NoOpBroadcaster discards all published messages. Useful for tests and
// setups without live delivery.
type NoOpBroadcaster struct{}

// Publish implements Broadcaster.
func (NoOpBroadcaster) Publish(string, string, Message) {}
