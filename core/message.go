package core

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single contribution to a thread. Messages are authored either
// by a user (posting under an active pseudonym) or by an agent. Invisible
// messages remain stored but are excluded from activity accounting and from
// default thread listings.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Body      string    `json:"body"`
	Owner     string    `json:"owner"`     // user id or agent id
	Pseudonym string    `json:"pseudonym"` // display identity at posting time
	FromAgent bool      `json:"from_agent"`
	Visible   bool      `json:"visible"`
	Count     int       `json:"count"` // qualifying-message count at creation
	CreatedAt time.Time `json:"created_at"`
}

// Qualifying reports whether the message counts toward agent activity
// thresholds: it must be visible and not authored by an agent.
func (m Message) Qualifying() bool { return m.Visible && !m.FromAgent }

// QualifyingCount returns the number of qualifying messages in msgs.
func QualifyingCount(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Qualifying() {
			n++
		}
	}
	return n
}

// NewID generates a new unique identifier for threads, agents and messages.
func NewID() string { return uuid.NewString() }
