package agenttype

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/convene/core"
)

// Registry maps agent-type identifiers to immutable descriptors. Types are
// registered at process start; lookups happen at agent-construction and
// evaluation time. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*core.AgentType
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*core.AgentType)}
}

// Register validates and adds a descriptor. Registering an existing id is an
// error: descriptors are immutable for the process lifetime.
func (r *Registry) Register(t *core.AgentType) error {
	if err := verify(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.ID]; exists {
		return fmt.Errorf("agent type %q already registered", t.ID)
	}
	r.types[t.ID] = t
	return nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (*core.AgentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTypeNotRegistered, id)
	}
	return t, nil
}

// List returns all registered descriptors ordered by Priority then id.
func (r *Registry) List() []*core.AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.AgentType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// verify checks descriptor completeness before registration.
func verify(t *core.AgentType) error {
	switch {
	case t == nil:
		return fmt.Errorf("agent type is nil")
	case t.ID == "":
		return fmt.Errorf("agent type id is required")
	case t.Name == "":
		return fmt.Errorf("agent type %q: name is required", t.ID)
	case t.Behavior == nil:
		return fmt.Errorf("agent type %q: behavior is required", t.ID)
	case t.MaxTokens <= 0:
		return fmt.Errorf("agent type %q: max tokens must be positive", t.ID)
	case t.UseNumLastMessages < 0:
		return fmt.Errorf("agent type %q: use num last messages must not be negative", t.ID)
	case t.MinNewMessages != nil && *t.MinNewMessages < 0:
		return fmt.Errorf("agent type %q: min new messages must not be negative", t.ID)
	case t.TimerPeriod != nil && *t.TimerPeriod <= 0:
		return fmt.Errorf("agent type %q: timer period must be positive", t.ID)
	}
	return nil
}
