// Package convene wires the trigger-and-evaluation engine, agent-type
// registry, scheduler and persistence behind a single facade for embedding
// agent-moderated threads into an application. Collaborators (store,
// broadcaster, job runner) are injected through functional options and default
// to in-process implementations.
package convene

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/convene/agenttype"
	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/engine"
	"github.com/hupe1980/convene/logging"
	"github.com/hupe1980/convene/scheduler"
	"github.com/hupe1980/convene/store/memory"
)

// Options configure a Convene instance.
type Options struct {
	// Store persists threads, agents and messages. Defaults to the in-memory
	// store.
	Store core.Store

	// Registry holds the agent types available to threads. Defaults to an
	// empty registry; register types via RegisterType.
	Registry *agenttype.Registry

	// Broadcaster receives newly persisted messages for live distribution.
	// Defaults to a no-op broadcaster.
	Broadcaster core.Broadcaster

	// JobRunner drives the recurring jobs of periodic agents. Defaults to the
	// in-process ticker-backed runner.
	JobRunner core.JobRunner

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger

	// EnableAgents is the process-wide master switch for agent evaluation.
	// Defaults to true.
	EnableAgents bool

	// ResponseTimeout bounds a single asynchronous response generation.
	// Defaults to two minutes.
	ResponseTimeout time.Duration
}

// Convene is the top-level entry point. It is safe for concurrent use.
type Convene struct {
	store       core.Store
	registry    *agenttype.Registry
	broadcaster core.Broadcaster
	runner      core.JobRunner
	logger      logging.Logger

	engine    *engine.Engine
	scheduler *scheduler.Scheduler
}

// New constructs a Convene instance with the given options.
func New(optFns ...func(o *Options)) *Convene {
	opts := Options{
		Store:           memory.NewStore(),
		Registry:        agenttype.NewRegistry(),
		Broadcaster:     core.NoOpBroadcaster{},
		JobRunner:       scheduler.NewInProcessRunner(),
		Logger:          logging.NoOpLogger{},
		EnableAgents:    true,
		ResponseTimeout: 2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(opts.Store, opts.Registry, func(o *engine.Options) {
		o.Broadcaster = opts.Broadcaster
		o.Logger = opts.Logger
		o.EnableAgents = opts.EnableAgents
		o.ResponseTimeout = opts.ResponseTimeout
	})

	sched := scheduler.New(opts.JobRunner, eng, opts.Store, opts.Registry, func(o *scheduler.Options) {
		o.Broadcaster = opts.Broadcaster
		o.Logger = opts.Logger
	})

	return &Convene{
		store:       opts.Store,
		registry:    opts.Registry,
		broadcaster: opts.Broadcaster,
		runner:      opts.JobRunner,
		logger:      opts.Logger,
		engine:      eng,
		scheduler:   sched,
	}
}

// RegisterType adds an agent type to the registry.
func (c *Convene) RegisterType(t *core.AgentType) error {
	return c.registry.Register(t)
}

// Registry exposes the agent-type registry, for listing available types.
func (c *Convene) Registry() *agenttype.Registry { return c.registry }

// Start launches the job runner. Periodic agents initialized before Start are
// held and begin firing once started.
func (c *Convene) Start() error {
	return c.runner.Start()
}

// Stop cancels all recurring jobs and waits for in-flight work, both timer
// fires and asynchronous response generations, to complete or ctx to expire.
func (c *Convene) Stop(ctx context.Context) error {
	if err := c.runner.Stop(ctx); err != nil {
		return err
	}
	return c.engine.Drain(ctx)
}

// CreateThread creates a thread with one agent per listed type id, in the
// given order. Agent order is a priority mechanism: gating types should come
// before contributing types. Each agent is initialized after the thread is
// persisted, with intro messages posted and periodic jobs registered.
//
// An unknown type id fails the whole creation before anything is persisted.
func (c *Convene) CreateThread(ctx context.Context, name, owner string, typeIDs ...string) (*core.Thread, error) {
	thread := &core.Thread{
		ID:           core.NewID(),
		Name:         name,
		Owner:        owner,
		EnableAgents: len(typeIDs) > 0,
	}

	for _, typeID := range typeIDs {
		agentType, err := c.registry.Get(typeID)
		if err != nil {
			return nil, err
		}
		thread.Agents = append(thread.Agents, &core.Agent{
			ID:        core.NewID(),
			TypeID:    typeID,
			ThreadID:  thread.ID,
			Pseudonym: agentType.Name,
		})
	}

	if err := c.store.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	for _, agent := range thread.Agents {
		if err := c.scheduler.Initialize(ctx, agent, true); err != nil {
			c.logger.Error("agent initialization failed", "agent_id", agent.ID, "error", err)
		}
	}

	c.logger.Info("thread created", "thread_id", thread.ID, "agents", len(thread.Agents))
	return c.store.GetThread(ctx, thread.ID)
}

// AddAgent attaches a new agent of the given type to the end of an existing
// thread's agent order and initializes it. An empty pseudonym defaults to the
// type's display name.
func (c *Convene) AddAgent(ctx context.Context, threadID, typeID, pseudonym string) (*core.Agent, error) {
	agentType, err := c.registry.Get(typeID)
	if err != nil {
		return nil, err
	}
	if pseudonym == "" {
		pseudonym = agentType.Name
	}

	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	agent := &core.Agent{
		ID:        core.NewID(),
		TypeID:    typeID,
		ThreadID:  thread.ID,
		Pseudonym: pseudonym,
	}
	thread.Agents = append(thread.Agents, agent)
	thread.EnableAgents = true

	if err := c.store.SaveThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}

	if err := c.scheduler.Initialize(ctx, agent, true); err != nil {
		c.logger.Error("agent initialization failed", "agent_id", agent.ID, "error", err)
	}
	return agent, nil
}

// SetThreadLocked locks or unlocks a thread. A locked thread rejects message
// submission with core.ErrThreadLocked; existing messages stay readable and
// periodic agents keep firing (their gates see no new activity).
func (c *Convene) SetThreadLocked(ctx context.Context, threadID string, locked bool) error {
	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Locked = locked
	return c.store.SaveThread(ctx, thread)
}

// GetThread returns the thread with its agents in order.
func (c *Convene) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	return c.store.GetThread(ctx, id)
}

// ThreadMessages returns the thread's messages in creation order.
func (c *Convene) ThreadMessages(ctx context.Context, threadID string) ([]core.Message, error) {
	return c.store.ThreadMessages(ctx, threadID)
}

// PostMessage submits a participant message to a thread. The thread's agents
// evaluate it in order before anything is persisted; a rejection surfaces as a
// *core.RejectionError carrying the rewording suggestion, and the message is
// not stored. An accepted message is persisted, with visibility reduced if any
// agent asked for it to be hidden, and published to the broadcaster.
func (c *Convene) PostMessage(ctx context.Context, threadID string, msg *core.Message) (*core.Message, error) {
	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Locked {
		return nil, core.ErrThreadLocked
	}

	msg.ThreadID = thread.ID

	visible, err := c.engine.ProcessMessage(ctx, thread, msg)
	if err != nil {
		return nil, err
	}
	msg.Visible = msg.Visible && visible

	created, err := c.store.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	c.broadcaster.Publish(thread.ID, core.EventMessageNew, *created)
	return created, nil
}

// DeleteThread cancels the recurring jobs of the thread's agents and removes
// the thread with its agents and messages. Contributions still generating for
// the thread are discarded before persistence.
func (c *Convene) DeleteThread(ctx context.Context, id string) error {
	thread, err := c.store.GetThread(ctx, id)
	if err != nil {
		return err
	}
	c.scheduler.CancelThread(thread)
	return c.store.DeleteThread(ctx, id)
}
