package session

import (
	"context"
	"sync"

	"github.com/icare-life/carebot/internal/conversation"
)

// MemoryStore keeps snapshots in process memory. Suited to development and
// tests; a restart loses all sessions.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]conversation.State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]conversation.State)}
}

// Get returns the stored snapshot for the given session.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*conversation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := snap
	return &copied, nil
}

// Save stores the snapshot under its session id.
func (s *MemoryStore) Save(_ context.Context, snapshot *conversation.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.SessionID] = *snapshot
	return nil
}

// Delete removes the snapshot for the given session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, sessionID)
	return nil
}

// List returns all stored snapshots.
func (s *MemoryStore) List(_ context.Context) ([]*conversation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]*conversation.State, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		copied := snap
		states = append(states, &copied)
	}

	return states, nil
}
