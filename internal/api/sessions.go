package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/icare-life/carebot/internal/conversation"
	"github.com/icare-life/carebot/internal/domain"
	"github.com/icare-life/carebot/internal/session"
)

type createSessionRequest struct {
	Language string `json:"language,omitempty"`
}

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages"`
	Total     int              `json:"total"`
}

type postMessageRequest struct {
	Text string `json:"text"`
}

type postOptionRequest struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctrl, err := s.sessions.Create(r.Context())
	if err != nil {
		msg, _ := s.errs.Handle(r.Context(), err)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	if req.Language != "" {
		// same path the widget's language buttons take
		ctrl.HandleMenuSelection(r.Context(), domain.Option{
			Label: req.Language,
			Value: "lang_" + strings.ToLower(req.Language),
		})
		if err := s.sessions.Persist(r.Context(), ctrl); err != nil {
			s.log.Warn("session persist failed", slog.String("session_id", ctrl.SessionID()), slog.Any("error", err))
		}
	}

	messages := ctrl.Messages(0)
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: ctrl.SessionID(),
		Messages:  messages,
		Total:     len(messages),
	})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	after := 0
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = parsed
	}

	messages := ctrl.Messages(after)
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: ctrl.SessionID(),
		Messages:  messages,
		Total:     after + len(messages),
	})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	before := len(ctrl.Messages(0))
	ctrl.HandleTextInput(r.Context(), req.Text)

	if err := s.sessions.Persist(r.Context(), ctrl); err != nil {
		s.log.Warn("session persist failed", slog.String("session_id", ctrl.SessionID()), slog.Any("error", err))
	}

	messages := ctrl.Messages(before)
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: ctrl.SessionID(),
		Messages:  messages,
		Total:     before + len(messages),
	})
}

func (s *Server) postOption(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req postOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "value must not be empty")
		return
	}

	before := len(ctrl.Messages(0))
	ctrl.HandleMenuSelection(r.Context(), domain.Option{
		Label: req.Label,
		Value: req.Value,
		Code:  req.Code,
	})

	if err := s.sessions.Persist(r.Context(), ctrl); err != nil {
		s.log.Warn("session persist failed", slog.String("session_id", ctrl.SessionID()), slog.Any("error", err))
	}

	messages := ctrl.Messages(before)
	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: ctrl.SessionID(),
		Messages:  messages,
		Total:     before + len(messages),
	})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.sessions.End(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		s.log.Error("session end failed", slog.String("session_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not end session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*conversation.Controller, bool) {
	id := r.PathValue("id")

	found, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}

		s.log.Error("session lookup failed", slog.String("session_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}

	return found, true
}
