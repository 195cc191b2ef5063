package agenttype

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/provider"
)

// CivilityMonitorID identifies the built-in per-message civility moderator.
const CivilityMonitorID = "civility-per-message"

const civilityTemplate = `You are a strict but fair discussion moderator.
Judge whether the following message is civil enough for a respectful group discussion.
If the message is acceptable, reply with exactly OK.
If it is not, reply with one short sentence suggesting how the author could reword it. Do not include the word OK in a suggestion.
Message: %s`

// civilityBehavior rejects uncivil messages with a reworded suggestion. It
// never contributes; Respond is present only to satisfy the capability set.
type civilityBehavior struct {
	baseBehavior
}

// NewCivilityMonitor builds the civility moderator type. It runs on every
// inbound message and is intended to be ordered before contributing agents
// so rejection short-circuits the whole pipeline.
func NewCivilityMonitor(c provider.Completer) *core.AgentType {
	return &core.AgentType{
		ID:                 CivilityMonitorID,
		Name:               "Civility Monitor",
		Description:        "Blocks uncivil messages and suggests a rewording.",
		MaxTokens:          2000,
		UseNumLastMessages: 0,
		Priority:           10,
		Behavior:           &civilityBehavior{baseBehavior{completer: c, maxTokens: 2000}},
	}
}

// Evaluate implements core.Behavior.
func (b *civilityBehavior) Evaluate(ctx context.Context, _ *core.BehaviorContext, trigger core.Trigger) (*core.Evaluation, error) {
	if trigger.Periodic() {
		// Nothing to judge on a timer fire.
		return &core.Evaluation{Action: core.ActionOK, UserContributionVisible: true}, nil
	}

	verdict, err := b.completer.Complete(ctx, fmt.Sprintf(civilityTemplate, trigger.Message.Body))
	if err != nil {
		return nil, fmt.Errorf("civility judgment: %w", err)
	}

	verdict = strings.TrimSpace(verdict)
	if strings.EqualFold(verdict, "OK") {
		return &core.Evaluation{
			Action:                  core.ActionOK,
			UserMessage:             trigger.Message,
			UserContributionVisible: true,
		}, nil
	}

	return &core.Evaluation{
		Action:                  core.ActionReject,
		UserMessage:             trigger.Message,
		UserContributionVisible: true,
		Suggestion:              verdict,
	}, nil
}

// Respond implements core.Behavior; the monitor never contributes.
func (b *civilityBehavior) Respond(context.Context, *core.BehaviorContext, core.Trigger) ([]core.Draft, error) {
	return nil, nil
}
