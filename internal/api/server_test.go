package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icare-life/carebot/internal/conversation"
	"github.com/icare-life/carebot/internal/health"
	"github.com/icare-life/carebot/internal/i18n"
	"github.com/icare-life/carebot/internal/policy"
	"github.com/icare-life/carebot/internal/session"
	"github.com/icare-life/carebot/internal/whodata"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessions(t *testing.T) *session.Manager {
	t.Helper()

	catalog, err := i18n.LoadFromDir("../i18n", "en")
	require.NoError(t, err)

	cfg := conversation.Config{
		Policy:             policy.Config{FreeQuestionLimit: 3},
		DefaultLanguage:    "en",
		SupportedLanguages: []string{"en", "fr"},
	}
	deps := conversation.Deps{Catalog: catalog, Log: testLogger()}

	return session.NewManager(
		session.NewMemoryStore(),
		func(sessionID string) *conversation.Controller {
			return conversation.New(sessionID, deps, cfg)
		},
		func(snapshot conversation.State) *conversation.Controller {
			return conversation.Resume(snapshot, deps, cfg)
		},
		testLogger(),
		30*time.Minute,
	)
}

func testHandler(t *testing.T, who *whodata.Client, checker *health.Checker) http.Handler {
	t.Helper()
	return NewServer(testSessions(t), who, checker, nil, testLogger()).Handler(Middleware{})
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func createTestSession(t *testing.T, handler http.Handler) sessionResponse {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeSession(t, rec)
}

func TestCreateSession(t *testing.T) {
	handler := testHandler(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decodeSession(t, rec)
	assert.True(t, strings.HasPrefix(resp.SessionID, "session_"))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, 1, resp.Total)
	assert.Contains(t, resp.Messages[0].Text, "What's your name?")
}

func TestCreateSession_WithLanguage(t *testing.T) {
	handler := testHandler(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions", map[string]string{"language": "EN"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeSession(t, rec)
	// welcome turn, the language click, and the acknowledgment
	assert.Equal(t, 3, resp.Total)
	assert.Contains(t, resp.Messages[2].Text, "English")
}

func TestCreateSession_InvalidBody(t *testing.T) {
	handler := testHandler(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/messages",
		map[string]string{"text": "Jane Doe"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSession(t, rec)
	require.Len(t, resp.Messages, 2, "the visitor turn and the bot reply")
	assert.Equal(t, "Jane Doe", resp.Messages[0].Text)
	assert.Contains(t, resp.Messages[1].Text, "Nice to meet you, Jane Doe")
	assert.Equal(t, 3, resp.Total)
}

func TestPostMessage_Validation(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/messages",
		map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage_UnknownSession(t *testing.T) {
	handler := testHandler(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/session_missing/messages",
		map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessages_Paging(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)
	doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/messages",
		map[string]string{"text": "Jane Doe"})

	rec := doJSON(t, handler, http.MethodGet, "/v1/sessions/"+created.SessionID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decodeSession(t, rec)
	require.Len(t, full.Messages, 3)
	assert.Equal(t, 3, full.Total)

	rec = doJSON(t, handler, http.MethodGet, "/v1/sessions/"+created.SessionID+"/messages?after=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeSession(t, rec)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, full.Messages[1].Text, page.Messages[0].Text)
	assert.Equal(t, 3, page.Total)

	// past the end yields an empty page, not an error
	rec = doJSON(t, handler, http.MethodGet, "/v1/sessions/"+created.SessionID+"/messages?after=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSession(t, rec).Messages)

	rec = doJSON(t, handler, http.MethodGet, "/v1/sessions/"+created.SessionID+"/messages?after=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostOption(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/options",
		map[string]string{"label": "English", "value": "lang_en", "code": "en"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSession(t, rec)
	require.Len(t, resp.Messages, 2)
	assert.Contains(t, resp.Messages[1].Text, "English")
}

func TestPostOption_UnknownValueIsNoop(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/options",
		map[string]string{"label": "Clicked", "value": "bogus"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSession(t, rec)
	require.Len(t, resp.Messages, 1, "only the click itself lands in the transcript")
}

func TestPostOption_MissingValue(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+created.SessionID+"/options",
		map[string]string{"label": "Clicked"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndSession(t *testing.T) {
	handler := testHandler(t, nil, nil)
	created := createTestSession(t, handler)

	rec := doJSON(t, handler, http.MethodDelete, "/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/v1/sessions/"+created.SessionID+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWhoRoutes_NotConfigured(t *testing.T) {
	handler := testHandler(t, nil, nil)

	for _, target := range []string{
		"/v1/who/life-expectancy/FRA",
		"/v1/who/topics",
		"/v1/who/topics/dementia/details",
	} {
		rec := doJSON(t, handler, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestWhoRoutes_Topics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/topics":
			fmt.Fprint(w, `{"topics":[{"id":"dementia","name":"Dementia","url":"https://who.int/dementia"}]}`)
		case "/indicators/life-expectancy":
			fmt.Fprint(w, `{"value":[{"SpatialDim":"FRA","TimeDim":2021,"NumericValue":82.5}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	who := whodata.NewClient(upstream.URL, time.Second, testLogger())
	handler := testHandler(t, who, nil)

	rec := doJSON(t, handler, http.MethodGet, "/v1/who/topics?search=dem", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dementia"`)

	rec = doJSON(t, handler, http.MethodGet, "/v1/who/life-expectancy/FRA", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FRA"`)

	rec = doJSON(t, handler, http.MethodGet, "/v1/who/topics/unknown/details", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWhoRoutes_UpstreamFailureMapsUserMessage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)

	who := whodata.NewClient(upstream.URL, time.Second, testLogger())
	handler := testHandler(t, who, nil)

	rec := doJSON(t, handler, http.MethodGet, "/v1/who/life-expectancy/FRA", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "temporarily unavailable",
		"the visitor sees the coded error's message, not the technical one")
}

func TestHealthz(t *testing.T) {
	handler := testHandler(t, nil, nil)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "no registered checks means healthy")

	rec = doJSON(t, handler, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_FailingComponent(t *testing.T) {
	checker := health.NewChecker(testLogger())
	checker.AddCheck("redis", failingCheck{})

	handler := testHandler(t, nil, checker)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error {
	return fmt.Errorf("connection refused")
}
