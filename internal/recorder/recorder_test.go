package recorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icare-life/carebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sessionSinkStub struct {
	records   []domain.SessionRecord
	summaries []domain.SessionSummary
	saveErr   error
}

func (s *sessionSinkStub) SaveSession(_ context.Context, record domain.SessionRecord) error {
	s.records = append(s.records, record)
	return s.saveErr
}

func (s *sessionSinkStub) SaveSummary(_ context.Context, summary domain.SessionSummary) error {
	s.summaries = append(s.summaries, summary)
	return s.saveErr
}

type querySinkStub struct {
	entries []domain.QueryLogEntry
	saveErr error
}

func (s *querySinkStub) SaveQuery(_ context.Context, _ string, entry domain.QueryLogEntry) error {
	s.entries = append(s.entries, entry)
	return s.saveErr
}

func identifiedProfile() domain.UserProfile {
	return domain.UserProfile{
		Name:         "Jane",
		Email:        "jane@example.com",
		LanguageCode: "en",
		UserType:     domain.UserTypeGuest,
	}
}

func TestRecordExchange_QueryAlwaysSaved(t *testing.T) {
	sessions := &sessionSinkStub{}
	queries := &querySinkStub{}
	r := New("session_1", time.Now(), 16, sessions, queries, testLogger())

	// anonymous profile, transcript far below the persistence threshold
	r.RecordExchange(context.Background(), domain.QueryLogEntry{QueryText: "q1"}, 2, domain.UserProfile{})

	require.Len(t, queries.entries, 1)
	assert.Equal(t, "q1", queries.entries[0].QueryText)
	assert.Empty(t, sessions.records, "anonymous sessions leave no session record")
}

func TestRecordExchange_SessionNeedsLengthAndEmail(t *testing.T) {
	tests := []struct {
		name          string
		transcriptLen int
		profile       domain.UserProfile
		wantSaved     bool
	}{
		{"short transcript with email", 15, identifiedProfile(), false},
		{"long transcript without email", 20, domain.UserProfile{Name: "Jane"}, false},
		{"threshold exactly met", 16, identifiedProfile(), true},
		{"long identified transcript", 40, identifiedProfile(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &sessionSinkStub{}
			r := New("session_2", time.Now(), 16, sessions, &querySinkStub{}, testLogger())

			r.RecordExchange(context.Background(), domain.QueryLogEntry{QueryText: "q"}, tt.transcriptLen, tt.profile)

			if tt.wantSaved {
				require.Len(t, sessions.records, 1)
				assert.Equal(t, "session_2", sessions.records[0].SessionID)
				assert.Equal(t, tt.profile.Email, sessions.records[0].Email)
			} else {
				assert.Empty(t, sessions.records)
			}
		})
	}
}

func TestRecordExchange_AccumulatesWholeLog(t *testing.T) {
	sessions := &sessionSinkStub{}
	r := New("session_3", time.Now(), 2, sessions, nil, testLogger())

	r.RecordExchange(context.Background(), domain.QueryLogEntry{QueryText: "q1"}, 10, identifiedProfile())
	r.RecordExchange(context.Background(), domain.QueryLogEntry{QueryText: "q2"}, 12, identifiedProfile())

	require.Len(t, sessions.records, 2)
	assert.Len(t, sessions.records[0].Entries, 1)
	require.Len(t, sessions.records[1].Entries, 2)
	assert.Equal(t, "q1", sessions.records[1].Entries[0].QueryText)
	assert.Equal(t, "q2", sessions.records[1].Entries[1].QueryText)
	assert.Equal(t, []domain.QueryLogEntry{{QueryText: "q1"}, {QueryText: "q2"}}, r.Entries())
}

func TestRecordExchange_SinkFailuresAreSwallowed(t *testing.T) {
	sessions := &sessionSinkStub{saveErr: errors.New("db down")}
	queries := &querySinkStub{saveErr: errors.New("db down")}
	r := New("session_4", time.Now(), 1, sessions, queries, testLogger())

	assert.NotPanics(t, func() {
		r.RecordExchange(context.Background(), domain.QueryLogEntry{QueryText: "q"}, 10, identifiedProfile())
	})

	// the in-memory log still advances
	assert.Len(t, r.Entries(), 1)
}

func TestRecordEnd_WholeSecondDuration(t *testing.T) {
	started := time.Now()
	sessions := &sessionSinkStub{}
	r := New("session_5", started, 16, sessions, nil, testLogger())

	r.RecordEnd(context.Background(), started.Add(90*time.Second+700*time.Millisecond), identifiedProfile())

	require.Len(t, sessions.summaries, 1)
	summary := sessions.summaries[0]
	assert.Equal(t, "session_5", summary.SessionID)
	assert.Equal(t, "jane@example.com", summary.Email)
	assert.Equal(t, int64(90), summary.DurationSeconds)
}

func TestRecordEnd_NegativeDurationClamped(t *testing.T) {
	started := time.Now()
	sessions := &sessionSinkStub{}
	r := New("session_6", started, 16, sessions, nil, testLogger())

	r.RecordEnd(context.Background(), started.Add(-time.Minute), domain.UserProfile{})

	require.Len(t, sessions.summaries, 1)
	assert.Equal(t, int64(0), sessions.summaries[0].DurationSeconds)
}

func TestRecordEnd_NoSinkIsNoop(t *testing.T) {
	r := New("session_7", time.Now(), 16, nil, nil, testLogger())

	assert.NotPanics(t, func() {
		r.RecordEnd(context.Background(), time.Now(), identifiedProfile())
	})
}
