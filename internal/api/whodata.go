package api

import (
	"net/http"
)

func (s *Server) lifeExpectancy(w http.ResponseWriter, r *http.Request) {
	if s.who == nil {
		writeError(w, http.StatusServiceUnavailable, "health data panel is not configured")
		return
	}

	life, err := s.who.FetchLifeExpectancy(r.Context(), r.PathValue("country"))
	if err != nil {
		msg, _ := s.errs.Handle(r.Context(), err)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusOK, life)
}

func (s *Server) topics(w http.ResponseWriter, r *http.Request) {
	if s.who == nil {
		writeError(w, http.StatusServiceUnavailable, "health data panel is not configured")
		return
	}

	found, err := s.who.FetchTopics(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		msg, _ := s.errs.Handle(r.Context(), err)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"topics": found})
}

func (s *Server) topicDetails(w http.ResponseWriter, r *http.Request) {
	if s.who == nil {
		writeError(w, http.StatusServiceUnavailable, "health data panel is not configured")
		return
	}

	details, err := s.who.FetchTopicDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		msg, _ := s.errs.Handle(r.Context(), err)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusOK, details)
}
