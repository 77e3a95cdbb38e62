// Package recorder accumulates the running query log of a session and
// flushes it to the persistence sinks. Persistence is best effort: failures
// are logged and never surfaced into the conversation.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/icare-life/carebot/internal/domain"
)

// SessionSink persists full session records and end-of-session summaries.
type SessionSink interface {
	SaveSession(ctx context.Context, record domain.SessionRecord) error
	SaveSummary(ctx context.Context, summary domain.SessionSummary) error
}

// QuerySink persists individual query exchanges for analytics.
type QuerySink interface {
	SaveQuery(ctx context.Context, sessionID string, entry domain.QueryLogEntry) error
}

// Recorder owns the in-memory ordered log for one session.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	startedAt time.Time
	entries   []domain.QueryLogEntry

	sessions SessionSink
	queries  QuerySink
	log      *slog.Logger

	// minTranscript is the minimum transcript length before the session is
	// persisted, so short abandoned sessions leave no record.
	minTranscript int
}

// New creates a recorder for the given session identifier.
func New(sessionID string, startedAt time.Time, minTranscript int, sessions SessionSink, queries QuerySink, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}

	return &Recorder{
		sessionID:     sessionID,
		startedAt:     startedAt,
		minTranscript: minTranscript,
		sessions:      sessions,
		queries:       queries,
		log:           log,
	}
}

// SessionID returns the identifier the recorder persists under.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Entries returns a copy of the accumulated log.
func (r *Recorder) Entries() []domain.QueryLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.QueryLogEntry(nil), r.entries...)
}

// RecordExchange appends a completed exchange and flushes the entire
// accumulated log, provided the transcript is long enough and an email
// identity is known. Anonymous sessions are never persisted.
func (r *Recorder) RecordExchange(ctx context.Context, entry domain.QueryLogEntry, transcriptLen int, profile domain.UserProfile) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	record := domain.SessionRecord{
		SessionID: r.sessionID,
		Email:     profile.Email,
		Name:      profile.Name,
		Language:  profile.LanguageCode,
		Entries:   append([]domain.QueryLogEntry(nil), r.entries...),
		StartedAt: r.startedAt,
	}
	r.mu.Unlock()

	if r.queries != nil {
		if err := r.queries.SaveQuery(ctx, r.sessionID, entry); err != nil {
			r.log.Warn("query history save failed", "session_id", r.sessionID, "error", err)
		}
	}

	if transcriptLen < r.minTranscript || profile.Email == "" {
		return
	}

	if r.sessions == nil {
		return
	}

	if err := r.sessions.SaveSession(ctx, record); err != nil {
		r.log.Warn("session save failed", "session_id", r.sessionID, "error", err)
	}
}

// RecordEnd sends the best-effort session summary with the whole-second
// duration when the session ends.
func (r *Recorder) RecordEnd(ctx context.Context, endedAt time.Time, profile domain.UserProfile) {
	if r.sessions == nil {
		return
	}

	duration := int64(endedAt.Sub(r.startedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}

	summary := domain.SessionSummary{
		SessionID:       r.sessionID,
		Email:           profile.Email,
		DurationSeconds: duration,
		EndedAt:         endedAt,
	}

	if err := r.sessions.SaveSummary(ctx, summary); err != nil {
		r.log.Warn("session summary save failed", "session_id", r.sessionID, "error", err)
	}
}
