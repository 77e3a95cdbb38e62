package domain

import "time"

// Role distinguishes who produced a transcript message.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// Option is a selectable menu entry rendered under a bot message. Value is the
// canonical transition token; Label is display-only and may carry icon prefixes.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Code  string `json:"code,omitempty"`
}

// Message is a single immutable transcript entry. Messages are appended in
// strict chronological order and never mutated afterwards.
type Message struct {
	Role                Role      `json:"role"`
	Text                string    `json:"text"`
	Timestamp           time.Time `json:"timestamp"`
	Options             []Option  `json:"options,omitempty"`
	ResponseTimeSeconds float64   `json:"response_time_seconds,omitempty"`
}

// AnswerCandidate is one part of a knowledge-base lookup result. Category is
// the course-module tag used for gating; SourceReferences lists the documents
// the answer was derived from.
type AnswerCandidate struct {
	Category         string   `json:"category"`
	ResponseText     string   `json:"response_text"`
	SourceReferences []string `json:"source_references"`
}

// CategoryFAQ marks freely accessible answers; CategoryOffTopic marks answers
// outside the knowledge base that are redirected to the general AI oracle.
const (
	CategoryFAQ      = "faq"
	CategoryOffTopic = "Off Topic"
)
