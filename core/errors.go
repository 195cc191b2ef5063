package core

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadNotFound indicates a lookup for an unknown thread id.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrAgentNotFound indicates a lookup for an unknown agent id.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrThreadLocked indicates a post attempt against a locked thread.
	ErrThreadLocked = errors.New("thread is locked and cannot receive messages")
	// ErrTypeNotRegistered indicates an agent references an agent type id
	// absent from the registry.
	ErrTypeNotRegistered = errors.New("agent type not registered")
)

// RejectionError is returned when an agent rejects a triggering message. The
// message is never persisted and Suggestion is surfaced to the submitting
// user so they can try again. Callers mapping this to HTTP should treat it as
// unprocessable input, not a server failure.
type RejectionError struct {
	AgentID    string
	Suggestion string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("message rejected by agent %s: %s", e.AgentID, e.Suggestion)
}

// IsRejection reports whether err is (or wraps) a RejectionError, returning
// it when found.
func IsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
