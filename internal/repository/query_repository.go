package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/icare-life/carebot/internal/domain"
)

// QueryRepository persists individual query exchanges for analytics.
type QueryRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewQueryRepository creates a SQL-backed query sink.
func NewQueryRepository(db *sql.DB, log *slog.Logger) *QueryRepository {
	return &QueryRepository{
		db:  db,
		log: log,
	}
}

// SaveQuery appends one exchange to the query history.
func (r *QueryRepository) SaveQuery(ctx context.Context, sessionID string, entry domain.QueryLogEntry) error {
	const query = `
		INSERT INTO query_history (session_id, query_text, response_text, response_time_seconds, topic, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		sessionID,
		entry.QueryText,
		entry.ResponseText,
		entry.ResponseTimeSeconds,
		entry.Topic,
		string(entry.Status),
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to save query entry", slog.String("session_id", sessionID), slog.Any("error", err))
		}
		return fmt.Errorf("insert query entry: %w", err)
	}

	return nil
}
