package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/convene/core"
)

// ProcessMessage runs the sequential multi-agent pass for an inbound message
// that has not yet been persisted. Each agent in thread order is offered the
// message; the first rejection aborts the whole sequence with a
// *core.RejectionError and subsequent agents are not consulted. The caller
// persists the message only after the full pass completes without rejection.
//
// The returned visibility is false when any agent accepted the message but
// asked for it to be stored hidden.
func (e *Engine) ProcessMessage(ctx context.Context, thread *core.Thread, msg *core.Message) (bool, error) {
	visible := true

	if !e.enabled || !thread.EnableAgents {
		return visible, nil
	}

	trigger := core.MessageTrigger(msg)
	for _, agent := range thread.Agents {
		eval, err := e.RunCycle(ctx, agent, trigger)
		if err != nil {
			// Provider failures on the message path surface as a generic
			// failure to the caller.
			return visible, fmt.Errorf("agent %s: %w", agent.ID, err)
		}
		if eval == nil {
			continue
		}

		if eval.Action == core.ActionReject {
			return visible, &core.RejectionError{AgentID: agent.ID, Suggestion: eval.Suggestion}
		}
		if !eval.UserContributionVisible {
			visible = false
		}

		e.logger.Debug("agent evaluation complete",
			"agent_id", agent.ID, "thread_id", thread.ID, "action", string(eval.Action))
	}

	e.logger.Info("agent processing complete", "thread_id", thread.ID, "agents", len(thread.Agents))
	return visible, nil
}
