package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/convene/core"
)

func msgs(qualifying, agent int) []core.Message {
	out := make([]core.Message, 0, qualifying+agent)
	for i := 0; i < qualifying; i++ {
		out = append(out, core.Message{Visible: true})
	}
	for i := 0; i < agent; i++ {
		out = append(out, core.Message{Visible: true, FromAgent: true})
	}
	return out
}

func TestActivityDelta(t *testing.T) {
	tests := []struct {
		name     string
		msgs     []core.Message
		last     int
		trigger  core.Trigger
		expected int
	}{
		{
			name:     "periodic counts persisted qualifying messages",
			msgs:     msgs(3, 0),
			last:     1,
			trigger:  core.PeriodicTrigger(),
			expected: 2,
		},
		{
			name:     "message trigger includes the pending message",
			msgs:     msgs(3, 0),
			last:     1,
			trigger:  core.MessageTrigger(&core.Message{Visible: true}),
			expected: 3,
		},
		{
			name:     "agent messages are excluded",
			msgs:     msgs(2, 1),
			last:     0,
			trigger:  core.PeriodicTrigger(),
			expected: 2,
		},
		{
			name:     "no backlog",
			msgs:     msgs(2, 0),
			last:     2,
			trigger:  core.PeriodicTrigger(),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &core.Agent{LastActiveMessageCount: tt.last}
			assert.Equal(t, tt.expected, activityDelta(agent, tt.msgs, tt.trigger))
		})
	}
}

func TestShouldEvaluate(t *testing.T) {
	min := 2
	tests := []struct {
		name     string
		min      *int
		msgs     []core.Message
		last     int
		trigger  core.Trigger
		expected bool
	}{
		{
			name:     "message triggers always pass",
			min:      &min,
			msgs:     nil,
			last:     0,
			trigger:  core.MessageTrigger(&core.Message{Visible: true}),
			expected: true,
		},
		{
			name:     "periodic without floor always passes",
			min:      nil,
			msgs:     nil,
			last:     0,
			trigger:  core.PeriodicTrigger(),
			expected: true,
		},
		{
			name:     "periodic below floor skips",
			min:      &min,
			msgs:     msgs(1, 0),
			last:     0,
			trigger:  core.PeriodicTrigger(),
			expected: false,
		},
		{
			name:     "periodic at floor passes",
			min:      &min,
			msgs:     msgs(2, 0),
			last:     0,
			trigger:  core.PeriodicTrigger(),
			expected: true,
		},
		{
			name:     "periodic ignores agent messages",
			min:      &min,
			msgs:     msgs(1, 3),
			last:     0,
			trigger:  core.PeriodicTrigger(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agentType := &core.AgentType{MinNewMessages: tt.min}
			agent := &core.Agent{LastActiveMessageCount: tt.last}
			assert.Equal(t, tt.expected, shouldEvaluate(agentType, agent, tt.msgs, tt.trigger))
		})
	}
}
