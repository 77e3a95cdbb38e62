// Package session owns the lifecycle of live chat sessions: creation,
// lookup, snapshot persistence and idle eviction.
package session

import (
	"context"
	"errors"

	"github.com/icare-life/carebot/internal/conversation"
)

// ErrSessionNotFound is returned when no snapshot exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// Store defines the persistence contract for conversation snapshots.
type Store interface {
	// Get returns the stored snapshot for the given session.
	Get(ctx context.Context, sessionID string) (*conversation.State, error)
	// Save stores the snapshot under its session id.
	Save(ctx context.Context, snapshot *conversation.State) error
	// Delete removes the snapshot for the given session.
	Delete(ctx context.Context, sessionID string) error
	// List returns all stored snapshots.
	List(ctx context.Context) ([]*conversation.State, error)
}
