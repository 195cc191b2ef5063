package core

import "context"

// Store is the persistence collaborator. The engine assumes create/read/
// update operations are atomic at single-document granularity and that
// message ordering follows creation time.
//
// CreateMessage assigns the message an id and timestamp when unset. A zero
// Count is filled with the thread's qualifying-message count after insertion;
// a caller-provided Count (the pipeline pre-computes it for agent
// contributions) is stored as-is.
type Store interface {
	CreateThread(ctx context.Context, thread *Thread) error
	GetThread(ctx context.Context, id string) (*Thread, error)
	SaveThread(ctx context.Context, thread *Thread) error
	DeleteThread(ctx context.Context, id string) error

	GetAgent(ctx context.Context, id string) (*Agent, error)
	SaveAgent(ctx context.Context, agent *Agent) error

	CreateMessage(ctx context.Context, msg *Message) (*Message, error)
	ThreadMessages(ctx context.Context, threadID string) ([]Message, error)
}
