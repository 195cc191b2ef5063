// Package testutil provides builders and polling helpers shared by tests.
package testutil

import (
	"context"
	"time"

	"github.com/hupe1980/convene/core"
)

// ThreadBuilder builds thread fixtures fluently.
type ThreadBuilder struct {
	thread core.Thread
}

// NewThread starts a thread fixture with agents enabled.
func NewThread(name string) *ThreadBuilder {
	return &ThreadBuilder{thread: core.Thread{
		ID:           core.NewID(),
		Name:         name,
		EnableAgents: true,
		CreatedAt:    time.Now().UTC(),
	}}
}

// WithID overrides the generated thread id.
func (b *ThreadBuilder) WithID(id string) *ThreadBuilder {
	b.thread.ID = id
	return b
}

// WithOwner sets the thread owner.
func (b *ThreadBuilder) WithOwner(owner string) *ThreadBuilder {
	b.thread.Owner = owner
	return b
}

// Locked marks the thread locked.
func (b *ThreadBuilder) Locked() *ThreadBuilder {
	b.thread.Locked = true
	return b
}

// AgentsDisabled turns off agent evaluation for the thread.
func (b *ThreadBuilder) AgentsDisabled() *ThreadBuilder {
	b.thread.EnableAgents = false
	return b
}

// WithAgent attaches an agent of the given type at the end of the order.
func (b *ThreadBuilder) WithAgent(id, typeID, pseudonym string) *ThreadBuilder {
	b.thread.Agents = append(b.thread.Agents, &core.Agent{
		ID:        id,
		TypeID:    typeID,
		ThreadID:  b.thread.ID,
		Pseudonym: pseudonym,
		CreatedAt: time.Now().UTC(),
	})
	return b
}

// Build returns the thread.
func (b *ThreadBuilder) Build() *core.Thread {
	clone := b.thread
	return &clone
}

// MustCreate builds the thread and persists it, failing the test on error.
func (b *ThreadBuilder) MustCreate(t interface{ Fatalf(string, ...any) }, store core.Store) *core.Thread {
	thread := b.Build()
	if err := store.CreateThread(context.Background(), thread); err != nil {
		t.Fatalf("create thread fixture: %v", err)
	}
	return thread
}

// MessageBuilder builds message fixtures fluently.
type MessageBuilder struct {
	msg core.Message
}

// NewMessage starts a visible participant message fixture.
func NewMessage(threadID, body string) *MessageBuilder {
	return &MessageBuilder{msg: core.Message{
		ThreadID:  threadID,
		Body:      body,
		Owner:     "user",
		Pseudonym: "user",
		Visible:   true,
		CreatedAt: time.Now().UTC(),
	}}
}

// From sets the owner and pseudonym.
func (b *MessageBuilder) From(owner string) *MessageBuilder {
	b.msg.Owner = owner
	b.msg.Pseudonym = owner
	return b
}

// FromAgent marks the message as agent-generated.
func (b *MessageBuilder) FromAgent() *MessageBuilder {
	b.msg.FromAgent = true
	return b
}

// Hidden marks the message invisible.
func (b *MessageBuilder) Hidden() *MessageBuilder {
	b.msg.Visible = false
	return b
}

// Build returns the message.
func (b *MessageBuilder) Build() *core.Message {
	clone := b.msg
	return &clone
}

// MustCreate builds the message and persists it, failing the test on error.
func (b *MessageBuilder) MustCreate(t interface{ Fatalf(string, ...any) }, store core.Store) *core.Message {
	created, err := store.CreateMessage(context.Background(), b.Build())
	if err != nil {
		t.Fatalf("create message fixture: %v", err)
	}
	return created
}

// WaitFor polls cond every 10ms until it returns true or the timeout elapses,
// reporting whether the condition was met. Use for asserting on asynchronous
// response generation without fixed sleeps.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
