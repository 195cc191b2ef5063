package scheduler

import (
	"context"
	"sync"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/logging"
)

// CycleRunner runs one periodic evaluation cycle for an agent. *engine.Engine
// satisfies this.
type CycleRunner interface {
	RunPeriodicCycle(ctx context.Context, agentID string)
}

// TypeSource resolves agent-type ids to descriptors.
type TypeSource interface {
	Get(id string) (*core.AgentType, error)
}

// Options configure a Scheduler.
type Options struct {
	// Broadcaster receives intro messages. Defaults to a no-op broadcaster.
	Broadcaster core.Broadcaster

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Scheduler registers and cancels the recurring evaluation jobs of periodic
// agents. Per agent it tracks an epoch counter: initialization and
// cancellation bump the epoch, and a fire whose captured epoch no longer
// matches detects it has been superseded and no-ops.
type Scheduler struct {
	runner      core.JobRunner
	cycles      CycleRunner
	store       core.Store
	types       TypeSource
	broadcaster core.Broadcaster
	logger      logging.Logger

	mu     sync.Mutex
	epochs map[string]uint64
}

// New constructs a Scheduler around a job runner and cycle runner.
func New(runner core.JobRunner, cycles CycleRunner, store core.Store, types TypeSource, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Broadcaster: core.NoOpBroadcaster{},
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scheduler{
		runner:      runner,
		cycles:      cycles,
		store:       store,
		types:       types,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		epochs:      make(map[string]uint64),
	}
}

// Initialize prepares a newly constructed agent: it runs the behavior's
// Initialize capability, optionally posts the type's intro message, and for
// periodic types registers the recurring evaluation job with the immediate
// fire suppressed (the first fire occurs one period after registration).
//
// Behavior, persistence and scheduling errors are logged and contained; they
// never propagate to thread or agent creation. The only returned error is an
// unresolvable agent type, which is a configuration defect.
func (s *Scheduler) Initialize(ctx context.Context, agent *core.Agent, sendIntro bool) error {
	agentType, err := s.types.Get(agent.TypeID)
	if err != nil {
		return err
	}

	if err := agentType.Behavior.Initialize(ctx); err != nil {
		s.logger.Error("behavior initialization failed", "agent_id", agent.ID, "error", err)
		return nil
	}

	if sendIntro {
		s.sendIntro(ctx, agent, agentType)
	}

	if !agentType.Periodic() {
		return nil
	}

	epoch := s.bumpEpoch(agent.ID)
	jobName := agent.JobName()
	agentID := agent.ID

	s.runner.Define(jobName, func(ctx context.Context, payload string) {
		if !s.epochCurrent(agentID, epoch) {
			s.logger.Debug("stale timer fire ignored", "agent_id", agentID)
			return
		}
		s.cycles.RunPeriodicCycle(ctx, payload)
	})

	if err := s.runner.Schedule(jobName, *agentType.TimerPeriod, agentID, core.ScheduleOptions{SkipImmediate: true}); err != nil {
		s.logger.Error("job registration failed", "agent_id", agentID, "job", jobName, "error", err)
	}
	return nil
}

// Cancel tears down an agent's recurring job and invalidates any in-flight
// fire via the epoch counter. Safe to call for message-triggered agents.
func (s *Scheduler) Cancel(agentID string) {
	s.bumpEpoch(agentID)
	if err := s.runner.Cancel("agent:" + agentID); err != nil {
		s.logger.Error("job cancellation failed", "agent_id", agentID, "error", err)
	}
}

// CancelThread cancels the jobs of every agent attached to the thread.
func (s *Scheduler) CancelThread(thread *core.Thread) {
	for _, a := range thread.Agents {
		s.Cancel(a.ID)
	}
}

// sendIntro posts the type's intro message before any timer activity. A type
// expected to introduce itself but configured without an intro message
// degrades gracefully: the optional behavior is skipped.
func (s *Scheduler) sendIntro(ctx context.Context, agent *core.Agent, agentType *core.AgentType) {
	if agentType.IntroMessage == "" {
		s.logger.Debug("no intro message configured", "agent_id", agent.ID, "type_id", agentType.ID)
		return
	}

	msg := &core.Message{
		ThreadID:  agent.ThreadID,
		Body:      agentType.IntroMessage,
		Owner:     agent.ID,
		Pseudonym: agent.Pseudonym,
		FromAgent: true,
		Visible:   true,
	}
	created, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		s.logger.Error("persist intro message", "agent_id", agent.ID, "error", err)
		return
	}
	s.broadcaster.Publish(agent.ThreadID, core.EventMessageNew, *created)
}

// bumpEpoch advances and returns the agent's epoch.
func (s *Scheduler) bumpEpoch(agentID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[agentID]++
	return s.epochs[agentID]
}

// epochCurrent reports whether epoch is still the agent's active epoch.
func (s *Scheduler) epochCurrent(agentID string, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[agentID] == epoch
}
