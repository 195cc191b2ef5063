// Package memory provides a volatile core.Store implementation holding
// threads, agents and messages in process-local maps. It is safe for
// concurrent access and best suited for tests or ephemeral demo servers.
// Returned documents are cloned to prevent external mutation of internal
// state.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/convene/core"
)

// threadRecord separates thread fields from agent membership so agent
// documents stay single-writer.
type threadRecord struct {
	thread   core.Thread
	agentIDs []string
}

// Store is an in-memory core.Store.
type Store struct {
	mu       sync.RWMutex
	threads  map[string]*threadRecord
	agents   map[string]*core.Agent
	messages map[string][]core.Message // keyed by thread id, creation order
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		threads:  make(map[string]*threadRecord),
		agents:   make(map[string]*core.Agent),
		messages: make(map[string][]core.Message),
	}
}

// CreateThread implements core.Store.
func (s *Store) CreateThread(_ context.Context, thread *core.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thread.ID == "" {
		thread.ID = core.NewID()
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	rec := &threadRecord{thread: *thread}
	rec.thread.Agents = nil
	for _, a := range thread.Agents {
		s.putAgentLocked(a)
		rec.agentIDs = append(rec.agentIDs, a.ID)
	}
	s.threads[thread.ID] = rec
	return nil
}

// GetThread implements core.Store.
func (s *Store) GetThread(_ context.Context, id string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.threads[id]
	if !ok {
		return nil, core.ErrThreadNotFound
	}
	return s.cloneThreadLocked(rec), nil
}

// SaveThread implements core.Store. It updates thread fields and agent
// membership/order from the provided document.
func (s *Store) SaveThread(_ context.Context, thread *core.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.threads[thread.ID]
	if !ok {
		return core.ErrThreadNotFound
	}

	rec.thread = *thread
	rec.thread.Agents = nil
	rec.agentIDs = rec.agentIDs[:0]
	for _, a := range thread.Agents {
		s.putAgentLocked(a)
		rec.agentIDs = append(rec.agentIDs, a.ID)
	}
	return nil
}

// DeleteThread implements core.Store. Deletion cascades to the thread's
// agents and messages.
func (s *Store) DeleteThread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.threads[id]
	if !ok {
		return core.ErrThreadNotFound
	}
	for _, aid := range rec.agentIDs {
		delete(s.agents, aid)
	}
	delete(s.messages, id)
	delete(s.threads, id)
	return nil
}

// GetAgent implements core.Store.
func (s *Store) GetAgent(_ context.Context, id string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, core.ErrAgentNotFound
	}
	clone := *a
	return &clone, nil
}

// SaveAgent implements core.Store.
func (s *Store) SaveAgent(_ context.Context, agent *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[agent.ID]; !ok {
		return core.ErrAgentNotFound
	}
	clone := *agent
	s.agents[agent.ID] = &clone
	return nil
}

// CreateMessage implements core.Store.
func (s *Store) CreateMessage(_ context.Context, msg *core.Message) (*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[msg.ThreadID]; !ok {
		return nil, core.ErrThreadNotFound
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = core.NewID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], stored)
	if stored.Count == 0 {
		stored.Count = core.QualifyingCount(s.messages[msg.ThreadID])
		msgs := s.messages[msg.ThreadID]
		msgs[len(msgs)-1].Count = stored.Count
	}

	clone := stored
	return &clone, nil
}

// ThreadMessages implements core.Store, returning messages in creation order.
func (s *Store) ThreadMessages(_ context.Context, threadID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, core.ErrThreadNotFound
	}
	msgs := s.messages[threadID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// putAgentLocked stores a defensive copy of the agent, assigning identity
// fields when unset; caller must hold the write lock.
func (s *Store) putAgentLocked(a *core.Agent) {
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	clone := *a
	s.agents[a.ID] = &clone
}

// cloneThreadLocked materializes a thread with its ordered agents; caller
// must hold at least the read lock.
func (s *Store) cloneThreadLocked(rec *threadRecord) *core.Thread {
	thread := rec.thread
	thread.Agents = make([]*core.Agent, 0, len(rec.agentIDs))
	for _, aid := range rec.agentIDs {
		if a, ok := s.agents[aid]; ok {
			clone := *a
			thread.Agents = append(thread.Agents, &clone)
		}
	}
	return &thread
}
