package core

import (
	"context"
	"time"
)

// AgentType is an immutable behavior descriptor registered at process start
// and shared by all agent instances of that kind. A non-nil TimerPeriod marks
// a periodic agent; a nil TimerPeriod marks a purely message-triggered agent.
//
// MinNewMessages, when set, is the minimum number of qualifying messages that
// must have accumulated since the agent's last completed evaluation before a
// periodic cycle proceeds. When nil, periodic cycles evaluate every fire
// regardless of traffic.
type AgentType struct {
	ID                 string
	Name               string
	Description        string
	MaxTokens          int
	UseNumLastMessages int
	MinNewMessages     *int
	TimerPeriod        *time.Duration
	Priority           int
	IntroMessage       string
	Behavior           Behavior
}

// Periodic reports whether agents of this type are driven by a recurring
// timer in addition to (or instead of) inbound messages.
func (t *AgentType) Periodic() bool { return t.TimerPeriod != nil }

// Behavior is the capability set backing an agent type. Implementations are
// selected by a registry lookup at agent-construction time; the engine treats
// them as external response-provider collaborators and never constructs
// prompts itself.
//
// Evaluate and Respond may call out to a completion provider and can take
// unbounded time; both must respect context cancellation. Respond is only
// invoked after Evaluate returned ActionContribute.
type Behavior interface {
	// Initialize prepares the behavior for a newly constructed agent.
	Initialize(ctx context.Context) error

	// Evaluate judges a trigger and decides the resulting action.
	Evaluate(ctx context.Context, bc *BehaviorContext, trigger Trigger) (*Evaluation, error)

	// Respond generates one or more draft messages for a contribution.
	Respond(ctx context.Context, bc *BehaviorContext, trigger Trigger) ([]Draft, error)

	// IsWithinTokenLimit reports whether text fits the type's token budget,
	// letting behaviors truncate conversational context before submission.
	IsWithinTokenLimit(text string) bool
}

// BehaviorContext carries the conversational context a behavior may consult
// during evaluation or response generation. History holds at most the type's
// UseNumLastMessages most recent thread messages in creation order.
// NewMessages is the qualifying-message delta since the agent last completed
// an evaluation, including a pending message trigger.
type BehaviorContext struct {
	Thread      *Thread
	AgentName   string
	History     []Message
	NewMessages int
}

// Trigger is the event offered to an agent's evaluation: either a specific
// qualifying message (Message non-nil) or a periodic timer fire.
type Trigger struct {
	Message *Message
}

// MessageTrigger wraps an inbound message as a trigger.
func MessageTrigger(m *Message) Trigger { return Trigger{Message: m} }

// PeriodicTrigger returns the timer-fire trigger carrying no message.
func PeriodicTrigger() Trigger { return Trigger{} }

// Periodic reports whether the trigger is a timer fire.
func (t Trigger) Periodic() bool { return t.Message == nil }
