package engine

import "github.com/hupe1980/convene/core"

// activityDelta returns the number of qualifying messages the agent has not
// yet accounted for. For a message trigger the pending (not yet persisted)
// triggering message counts toward the delta.
func activityDelta(agent *core.Agent, msgs []core.Message, trigger core.Trigger) int {
	delta := core.QualifyingCount(msgs) - agent.LastActiveMessageCount
	if !trigger.Periodic() {
		delta++
	}
	return delta
}

// shouldEvaluate applies the minimum-activity gate. Message triggers always
// pass: every qualifying inbound message is offered to every enabled agent.
// Periodic triggers pass when the type declares no floor, or when the
// qualifying delta has reached it.
func shouldEvaluate(t *core.AgentType, agent *core.Agent, msgs []core.Message, trigger core.Trigger) bool {
	if !trigger.Periodic() {
		return true
	}
	if t.MinNewMessages == nil {
		return true
	}
	return activityDelta(agent, msgs, trigger) >= *t.MinNewMessages
}
