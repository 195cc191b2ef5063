package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/convene/core"
)

// RunCycle runs one complete evaluation cycle for one agent in response to
// one trigger. It returns nil, nil for a skipped cycle (gate failed, thread
// disabled, or a prior cycle still in flight on a periodic fire); that is a
// no-op, not an error.
//
// A rejection is returned as the evaluation (Action == ActionReject); the
// message-creation caller is responsible for aborting persistence and
// surfacing the suggestion. Response generation for a contribution happens
// asynchronously and never blocks the caller.
func (e *Engine) RunCycle(ctx context.Context, agent *core.Agent, trigger core.Trigger) (*core.Evaluation, error) {
	st := e.cycleStateFor(agent.ID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if trigger.Periodic() && st.busy {
		e.logger.Debug("cycle skipped: response generation in flight", "agent_id", agent.ID)
		return nil, nil
	}

	agentType, err := e.types.Get(agent.TypeID)
	if err != nil {
		return nil, fmt.Errorf("resolve agent type: %w", err)
	}

	thread, err := e.store.GetThread(ctx, agent.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if !thread.EnableAgents {
		return nil, nil
	}

	msgs, err := e.store.ThreadMessages(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	if !shouldEvaluate(agentType, agent, msgs, trigger) {
		e.logger.Debug("cycle skipped: below activity floor",
			"agent_id", agent.ID, "last_active", agent.LastActiveMessageCount)
		return nil, nil
	}

	// Two accounting marks for this cycle. An OK records the persisted
	// qualifying count; the pending triggering message is excluded so it
	// still counts toward the next cycle's delta and a minimum-activity
	// floor above one stays reachable. A contribution consumes the backlog
	// including the pending message, which the caller persists after the
	// sequence completes.
	persisted := core.QualifyingCount(msgs)
	target := persisted
	if !trigger.Periodic() {
		target++
	}

	bc := &core.BehaviorContext{
		Thread:      thread,
		AgentName:   agent.Pseudonym,
		History:     lastN(msgs, agentType.UseNumLastMessages),
		NewMessages: activityDelta(agent, msgs, trigger),
	}

	eval, err := agentType.Behavior.Evaluate(ctx, bc, trigger)
	if err != nil {
		return nil, fmt.Errorf("evaluate agent %s: %w", agent.ID, err)
	}

	switch eval.Action {
	case core.ActionReject:
		// No activity-count update; the same backlog is re-offered on the
		// next qualifying event.
		return eval, nil

	case core.ActionAnnotate:
		// Extension point with no defined persisted effect; acknowledged and
		// accounted like an accept.
		e.logger.Info("annotation acknowledged", "agent_id", agent.ID, "thread_id", thread.ID)
		fallthrough

	case core.ActionOK:
		if !trigger.Periodic() {
			if err := e.advanceActivity(ctx, agent, persisted); err != nil {
				e.logger.Error("update activity count", "agent_id", agent.ID, "error", err)
			}
		}
		return eval, nil

	case core.ActionContribute:
		if st.busy {
			// A prior cycle's generation has not completed; starting another
			// would risk duplicate contributions. The counter is left alone
			// so the backlog is re-offered next trigger.
			e.logger.Warn("contribution suppressed: response generation in flight",
				"agent_id", agent.ID)
			return eval, nil
		}
		st.busy = true
		e.respond(agent, agentType, bc, trigger, eval, target)
		return eval, nil

	default:
		return nil, fmt.Errorf("agent %s: unknown action %q", agent.ID, eval.Action)
	}
}

// respond generates and persists a contribution off the triggering path. The
// caller must hold the agent's cycle lock and have set busy; busy is cleared
// when generation completes.
func (e *Engine) respond(
	agent *core.Agent,
	agentType *core.AgentType,
	bc *core.BehaviorContext,
	trigger core.Trigger,
	eval *core.Evaluation,
	target int,
) {
	st := e.cycleStateFor(agent.ID)
	e.responders.Add(1)

	go func() {
		defer e.responders.Done()
		defer func() {
			st.mu.Lock()
			st.busy = false
			st.mu.Unlock()
		}()

		// Detached from the triggering request: generation may outlive the
		// inbound call by design.
		ctx, cancel := context.WithTimeout(context.Background(), e.respTimeout)
		defer cancel()

		drafts, err := agentType.Behavior.Respond(ctx, bc, trigger)
		if err != nil {
			e.logger.Error("response generation failed", "agent_id", agent.ID, "error", err)
			return
		}
		if len(drafts) == 0 {
			e.logger.Warn("response generation returned no drafts", "agent_id", agent.ID)
			return
		}

		// The thread may have been deleted while the provider was working;
		// never write into a deleted thread.
		if _, err := e.store.GetThread(ctx, agent.ThreadID); err != nil {
			if errors.Is(err, core.ErrThreadNotFound) {
				e.logger.Warn("discarding contribution for deleted thread",
					"agent_id", agent.ID, "thread_id", agent.ThreadID)
			} else {
				e.logger.Error("thread lookup before persist", "agent_id", agent.ID, "error", err)
			}
			return
		}

		for _, d := range drafts {
			msg := &core.Message{
				ThreadID:  agent.ThreadID,
				Body:      d.Body,
				Owner:     agent.ID,
				Pseudonym: agent.Pseudonym,
				FromAgent: true,
				Visible:   d.Visible && eval.AgentContributionVisible,
				Count:     target,
			}
			created, err := e.store.CreateMessage(ctx, msg)
			if err != nil {
				e.logger.Error("persist agent message", "agent_id", agent.ID, "error", err)
				return
			}
			e.broadcaster.Publish(agent.ThreadID, core.EventMessageNew, *created)
		}

		if err := e.advanceActivity(ctx, agent, target); err != nil {
			e.logger.Error("update activity count", "agent_id", agent.ID, "error", err)
		}
	}()
}

// advanceActivity records that the agent has accounted for count qualifying
// messages.
func (e *Engine) advanceActivity(ctx context.Context, agent *core.Agent, count int) error {
	agent.LastActiveMessageCount = count
	return e.store.SaveAgent(ctx, agent)
}

// RunPeriodicCycle loads the agent and runs a timer-fire cycle. Errors are
// logged and contained: a failed cycle is invisible to end users and never
// tears down the recurring registration.
func (e *Engine) RunPeriodicCycle(ctx context.Context, agentID string) {
	if !e.enabled {
		return
	}

	agent, err := e.store.GetAgent(ctx, agentID)
	if err != nil {
		e.logger.Warn("periodic fire for unknown agent", "agent_id", agentID, "error", err)
		return
	}

	if _, err := e.RunCycle(ctx, agent, core.PeriodicTrigger()); err != nil {
		e.logger.Error("periodic cycle failed", "agent_id", agentID, "error", err)
	}
}
