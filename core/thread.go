package core

import "time"

// Thread is a named multi-party conversation. A thread owns an ordered list
// of agents; agent order is a deliberate priority mechanism: agents intended
// to gate content (moderation) should be ordered before agents intended to
// contribute.
//
// Invariant: if EnableAgents is false no agent evaluation occurs for this
// thread regardless of agent configuration.
type Thread struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	Locked       bool      `json:"locked"`
	EnableAgents bool      `json:"enable_agents"`
	Agents       []*Agent  `json:"agents"`
	CreatedAt    time.Time `json:"created_at"`
}

// Agent is a configured autonomous participant attached to exactly one
// thread, backed by an agent-type behavior set.
//
// LastActiveMessageCount records the qualifying-message count this agent has
// already accounted for. It is mutated only by the agent's own evaluation
// cycle, exactly once per completed cycle, and never counts the agent's own
// generated messages.
type Agent struct {
	ID                     string    `json:"id"`
	TypeID                 string    `json:"type_id"`
	ThreadID               string    `json:"thread_id"`
	Pseudonym              string    `json:"pseudonym"`
	LastActiveMessageCount int       `json:"last_active_message_count"`
	CreatedAt              time.Time `json:"created_at"`
}

// JobName returns the stable per-agent job name used to key the agent's
// recurring evaluation job with the job runner.
func (a *Agent) JobName() string { return "agent:" + a.ID }
