package provider

import (
	"context"
	"fmt"
	"sync"
)

// Completer produces a single text completion for a prompt. Implementations
// wrap a vendor SDK and may take unbounded time; they must respect context
// cancellation. Behaviors treat the completer as an external collaborator and
// own prompt construction themselves.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Info contains metadata about a completer implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// ApproxTokens estimates the token count of text using the common
// four-characters-per-token heuristic. Behaviors use it for token-budget
// checks; it intentionally over-counts short texts rather than risking
// overruns on long ones.
func ApproxTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

// MockCompleter is a lightweight in-memory Completer useful for tests and
// examples. Prompts are matched exactly; unmatched prompts yield a canned
// fallback so tests do not need to register every prompt.
type MockCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	err       error
	calls     []string
}

// NewMockCompleter constructs a MockCompleter with a default fallback.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		responses: make(map[string]string),
		fallback:  "mock completion",
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockCompleter) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetFallback sets the completion returned for unregistered prompts.
func (m *MockCompleter) SetFallback(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
}

// FailWith makes every subsequent Complete call return err.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the prompts seen so far in order.
func (m *MockCompleter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)

	if m.err != nil {
		return "", fmt.Errorf("mock completer: %w", m.err)
	}
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return m.fallback, nil
}
