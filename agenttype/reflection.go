package agenttype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/provider"
)

// ReflectionID identifies the built-in periodic reflection agent.
const ReflectionID = "reflection-periodic"

const reflectionTemplate = `You are a thoughtful observer of a group discussion.
Summarize the themes of the conversation so far in two or three sentences, then pose one open question that invites quieter participants to contribute.
Topic: %s
Conversation history: %s
Reflection:`

// reflectionBehavior periodically mirrors the conversation back to the
// group. It has no minimum-activity floor: every timer fire evaluates, and
// it declines to contribute only when the thread has no visible history yet.
type reflectionBehavior struct {
	baseBehavior
}

// NewReflection builds the reflection agent type.
func NewReflection(c provider.Completer) *core.AgentType {
	period := 5 * time.Minute
	return &core.AgentType{
		ID:                 ReflectionID,
		Name:               "Reflector",
		Description:        "Periodically summarizes the discussion and invites new voices.",
		MaxTokens:          4000,
		UseNumLastMessages: 40,
		TimerPeriod:        &period,
		Priority:           300,
		Behavior:           &reflectionBehavior{baseBehavior{completer: c, maxTokens: 4000}},
	}
}

// Evaluate implements core.Behavior.
func (b *reflectionBehavior) Evaluate(_ context.Context, bc *core.BehaviorContext, _ core.Trigger) (*core.Evaluation, error) {
	if core.QualifyingCount(bc.History) == 0 {
		return &core.Evaluation{Action: core.ActionOK, UserContributionVisible: true}, nil
	}
	return &core.Evaluation{
		Action:                   core.ActionContribute,
		UserContributionVisible:  true,
		AgentContributionVisible: true,
	}, nil
}

// Respond implements core.Behavior.
func (b *reflectionBehavior) Respond(ctx context.Context, bc *core.BehaviorContext, trigger core.Trigger) ([]core.Draft, error) {
	history := b.trimmedHistory(bc, trigger)
	prompt := fmt.Sprintf(reflectionTemplate, bc.Thread.Name, history)

	reply, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reflection response: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("reflection response: empty completion")
	}

	return []core.Draft{{Visible: true, Body: reply}}, nil
}

// RegisterBuiltins registers the full built-in behavior set against a single
// completer. Callers wanting different providers per type register the
// constructors individually.
func RegisterBuiltins(r *Registry, c provider.Completer) error {
	for _, t := range []*core.AgentType{
		NewCivilityMonitor(c),
		NewPlayfulFacilitator(c),
		NewPlayfulPeriodic(c),
		NewReflection(c),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
