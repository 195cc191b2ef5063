package engine

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/logging"
)

// TypeSource resolves agent-type ids to descriptors. *agenttype.Registry
// satisfies this; the engine depends only on lookup.
type TypeSource interface {
	Get(id string) (*core.AgentType, error)
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Broadcaster receives newly persisted agent messages. Defaults to a
	// no-op broadcaster.
	Broadcaster core.Broadcaster

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger

	// EnableAgents is the process-wide master switch. When false no agent
	// evaluation occurs for any thread. Defaults to true.
	EnableAgents bool

	// ResponseTimeout bounds a single asynchronous response generation.
	// Defaults to two minutes.
	ResponseTimeout time.Duration
}

// Engine coordinates agent evaluation cycles. It is safe for concurrent use.
type Engine struct {
	store       core.Store
	types       TypeSource
	broadcaster core.Broadcaster
	logger      logging.Logger

	enabled     bool
	respTimeout time.Duration

	mu     sync.Mutex
	cycles map[string]*cycleState // keyed by agent id

	responders sync.WaitGroup
}

// cycleState serializes evaluation per agent. The mutex guards the
// synchronous portion of a cycle (gate, evaluate, accounting); busy marks an
// asynchronous response generation still in flight.
type cycleState struct {
	mu   sync.Mutex
	busy bool
}

// New creates an Engine bound to a store and type registry. All other
// collaborators default to inert implementations.
func New(store core.Store, types TypeSource, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Broadcaster:     core.NoOpBroadcaster{},
		Logger:          logging.NoOpLogger{},
		EnableAgents:    true,
		ResponseTimeout: 2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		store:       store,
		types:       types,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		enabled:     opts.EnableAgents,
		respTimeout: opts.ResponseTimeout,
		cycles:      make(map[string]*cycleState),
	}
}

// cycleStateFor returns (creating if needed) the per-agent cycle state.
func (e *Engine) cycleStateFor(agentID string) *cycleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.cycles[agentID]
	if !ok {
		st = &cycleState{}
		e.cycles[agentID] = st
	}
	return st
}

// Drain blocks until all in-flight response generations complete or ctx
// expires. Intended for shutdown and tests.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.responders.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lastN returns at most n trailing elements of msgs; n <= 0 returns msgs.
func lastN(msgs []core.Message, n int) []core.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
