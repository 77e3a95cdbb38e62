// Package repository implements PostgreSQL persistence for session records
// and the per-query analytics log.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/icare-life/carebot/internal/domain"
)

// SessionRepository persists full session records and summaries.
type SessionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSessionRepository creates a SQL-backed session sink.
func NewSessionRepository(db *sql.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

// SaveSession upserts the accumulated session record. The entry log is stored
// as JSONB so each flush replaces the previous snapshot of the same session.
func (r *SessionRepository) SaveSession(ctx context.Context, record domain.SessionRecord) error {
	const query = `
		INSERT INTO sessions (session_id, email, name, language, entries, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    language = EXCLUDED.language,
		    entries = EXCLUDED.entries
	`

	entries, err := json.Marshal(record.Entries)
	if err != nil {
		return fmt.Errorf("marshal session entries: %w", err)
	}

	if _, err := r.db.ExecContext(
		ctx,
		query,
		record.SessionID,
		record.Email,
		record.Name,
		record.Language,
		entries,
		record.StartedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to save session record", slog.String("session_id", record.SessionID), slog.Any("error", err))
		}
		return fmt.Errorf("upsert session: %w", err)
	}

	return nil
}

// SaveSummary stores the end-of-session summary row.
func (r *SessionRepository) SaveSummary(ctx context.Context, summary domain.SessionSummary) error {
	const query = `
		INSERT INTO session_summaries (session_id, email, duration_seconds, ended_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET duration_seconds = EXCLUDED.duration_seconds,
		    ended_at = EXCLUDED.ended_at
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		summary.SessionID,
		summary.Email,
		summary.DurationSeconds,
		summary.EndedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to save session summary", slog.String("session_id", summary.SessionID), slog.Any("error", err))
		}
		return fmt.Errorf("upsert session summary: %w", err)
	}

	return nil
}
