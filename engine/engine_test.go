package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/convene/core"
)

// stubBehavior implements core.Behavior with pluggable evaluate/respond
// functions and call counting.
type stubBehavior struct {
	mu            sync.Mutex
	evaluateFn    func(bc *core.BehaviorContext, trigger core.Trigger) (*core.Evaluation, error)
	respondFn     func(bc *core.BehaviorContext, trigger core.Trigger) ([]core.Draft, error)
	evaluateCalls int
	respondCalls  int
}

func (b *stubBehavior) Initialize(context.Context) error { return nil }

func (b *stubBehavior) IsWithinTokenLimit(string) bool { return true }

func (b *stubBehavior) Evaluate(_ context.Context, bc *core.BehaviorContext, trigger core.Trigger) (*core.Evaluation, error) {
	b.mu.Lock()
	b.evaluateCalls++
	fn := b.evaluateFn
	b.mu.Unlock()
	if fn == nil {
		return &core.Evaluation{Action: core.ActionOK, UserContributionVisible: true}, nil
	}
	return fn(bc, trigger)
}

func (b *stubBehavior) Respond(_ context.Context, bc *core.BehaviorContext, trigger core.Trigger) ([]core.Draft, error) {
	b.mu.Lock()
	b.respondCalls++
	fn := b.respondFn
	b.mu.Unlock()
	if fn == nil {
		return []core.Draft{{Visible: true, Body: "stub contribution"}}, nil
	}
	return fn(bc, trigger)
}

func (b *stubBehavior) evaluations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evaluateCalls
}

func (b *stubBehavior) responses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.respondCalls
}

// stubTypes is a map-backed TypeSource.
type stubTypes map[string]*core.AgentType

func (s stubTypes) Get(id string) (*core.AgentType, error) {
	t, ok := s[id]
	if !ok {
		return nil, core.ErrTypeNotRegistered
	}
	return t, nil
}

// captureBroadcaster records published events.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []core.Message
}

func (c *captureBroadcaster) Publish(_ string, _ string, msg core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, msg)
}

func (c *captureBroadcaster) published() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Message, len(c.events))
	copy(out, c.events)
	return out
}
