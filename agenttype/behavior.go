package agenttype

import (
	"context"
	"strings"

	"github.com/hupe1980/convene/core"
	"github.com/hupe1980/convene/provider"
)

// baseBehavior bundles the capabilities shared by the built-in behaviors:
// no-op initialization and the approximate token-budget check. Embed it and
// supply Evaluate/Respond.
type baseBehavior struct {
	completer provider.Completer
	maxTokens int
}

// Initialize implements core.Behavior; built-in behaviors need no setup.
func (b *baseBehavior) Initialize(_ context.Context) error { return nil }

// IsWithinTokenLimit implements core.Behavior using the chars/4 heuristic.
func (b *baseBehavior) IsWithinTokenLimit(text string) bool {
	return provider.ApproxTokens(text) <= b.maxTokens
}

// formatHistory renders messages as "pseudonym: body" lines for prompt
// inclusion. Invisible messages are omitted; agent messages are kept so the
// model can avoid repeating itself.
func formatHistory(msgs []core.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		if !m.Visible {
			continue
		}
		sb.WriteString(m.Pseudonym)
		sb.WriteString(": ")
		sb.WriteString(m.Body)
		sb.WriteString("\n")
	}
	return sb.String()
}

// trimmedHistory drops the oldest messages until the rendered history passes
// the token check. The triggering message, when present, is appended last.
func (b *baseBehavior) trimmedHistory(bc *core.BehaviorContext, trigger core.Trigger) string {
	msgs := bc.History
	if trigger.Message != nil {
		msgs = append(append([]core.Message{}, msgs...), *trigger.Message)
	}
	for len(msgs) > 1 && !b.IsWithinTokenLimit(formatHistory(msgs)) {
		msgs = msgs[1:]
	}
	return formatHistory(msgs)
}

func intPtr(v int) *int { return &v }
