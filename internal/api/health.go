package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{}
	if s.checker != nil {
		results = s.checker.Check(r.Context())
	}

	status := http.StatusOK
	for _, result := range results {
		if result != "OK" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]any{"components": results})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// readiness mirrors healthz; kept separate so probes can diverge later
	s.healthz(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
