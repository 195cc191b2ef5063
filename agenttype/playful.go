package agenttype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/provider"
)

// Identifiers for the built-in playful facilitator variants.
const (
	PlayfulFacilitatorID = "playful-per-message"
	PlayfulPeriodicID    = "playful-periodic"
)

const playfulTemplate = `You are a playful discussion facilitator who can suggest discussion questions based only on the topic provided and the conversation history.
Always speak as if you were chatting to a friend in a playful and mischievous manner.
Address your question to a specific discussion participant other than yourself and preface the participant's name with the @ symbol.
Make sure your question is unique from prior questions you have asked.
Topic: %s
Conversation history: %s
Answer:`

// playfulBehavior contributes a facilitation question once enough fresh
// activity has accumulated. Both variants apply the minimum-activity floor
// inside Evaluate on the message-triggered path, where the outer gate always
// passes; periodic fires rely on the outer gate and always ask to contribute.
type playfulBehavior struct {
	baseBehavior
	minNewMessages int // message-triggered floor; 0 disables
}

// NewPlayfulFacilitator builds the message-triggered facilitator type.
func NewPlayfulFacilitator(c provider.Completer) *core.AgentType {
	return &core.AgentType{
		ID:                 PlayfulFacilitatorID,
		Name:               "Playful Facilitator",
		Description:        "A playful agent to lighten up a conversation!",
		MaxTokens:          2000,
		UseNumLastMessages: 20,
		MinNewMessages:     intPtr(2),
		Priority:           100,
		Behavior: &playfulBehavior{
			baseBehavior:   baseBehavior{completer: c, maxTokens: 2000},
			minNewMessages: 2,
		},
	}
}

// NewPlayfulPeriodic builds the timer-driven facilitator type. It greets the
// thread with an intro message and then fires every period, gated on two new
// qualifying messages.
func NewPlayfulPeriodic(c provider.Completer) *core.AgentType {
	period := 30 * time.Second
	return &core.AgentType{
		ID:                 PlayfulPeriodicID,
		Name:               "Playful Facilitator (Periodic)",
		Description:        "A playful agent to lighten up a conversation!",
		MaxTokens:          2000,
		UseNumLastMessages: 20,
		MinNewMessages:     intPtr(2),
		TimerPeriod:        &period,
		Priority:           200,
		IntroMessage:       "Hello there! I'll pop in now and then with a question to keep things lively.",
		Behavior: &playfulBehavior{
			baseBehavior:   baseBehavior{completer: c, maxTokens: 2000},
			minNewMessages: 2,
		},
	}
}

// Evaluate implements core.Behavior.
func (b *playfulBehavior) Evaluate(_ context.Context, bc *core.BehaviorContext, trigger core.Trigger) (*core.Evaluation, error) {
	if !trigger.Periodic() && b.minNewMessages > 0 && bc.NewMessages < b.minNewMessages {
		return &core.Evaluation{
			Action:                  core.ActionOK,
			UserMessage:             trigger.Message,
			UserContributionVisible: true,
		}, nil
	}

	return &core.Evaluation{
		Action:                   core.ActionContribute,
		UserMessage:              trigger.Message,
		UserContributionVisible:  true,
		AgentContributionVisible: true,
	}, nil
}

// Respond implements core.Behavior; generates one visible question.
func (b *playfulBehavior) Respond(ctx context.Context, bc *core.BehaviorContext, trigger core.Trigger) ([]core.Draft, error) {
	history := b.trimmedHistory(bc, trigger)
	prompt := fmt.Sprintf(playfulTemplate, bc.Thread.Name, history)

	reply, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("playful response: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("playful response: empty completion")
	}

	return []core.Draft{{Visible: true, Body: reply}}, nil
}
