package domain

import "time"

// ExchangeStatus records whether a query produced a usable answer.
type ExchangeStatus string

const (
	StatusAnswered   ExchangeStatus = "Answered"
	StatusUnanswered ExchangeStatus = "Unanswered"
)

// QueryLogEntry is one completed question/answer exchange in a session.
type QueryLogEntry struct {
	QueryText           string         `json:"query_text"`
	ResponseText        string         `json:"response_text"`
	ResponseTimeSeconds float64        `json:"response_time_seconds"`
	Topic               string         `json:"topic"`
	Status              ExchangeStatus `json:"status"`
}

// SessionRecord is the full accumulated log flushed to persistence after each
// completed exchange, keyed by the per-session identifier.
type SessionRecord struct {
	SessionID string          `json:"session_id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Language  string          `json:"language"`
	Entries   []QueryLogEntry `json:"entries"`
	StartedAt time.Time       `json:"started_at"`
}

// SessionSummary is the best-effort record sent once when a session ends.
type SessionSummary struct {
	SessionID       string    `json:"session_id"`
	Email           string    `json:"email"`
	DurationSeconds int64     `json:"duration_seconds"`
	EndedAt         time.Time `json:"ended_at"`
}
