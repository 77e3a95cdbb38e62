package middleware

import (
	"net/http"
	"time"

	"github.com/icare-life/carebot/pkg/metrics"
)

// Metrics measures execution time and status for API requests, reporting
// them to Prometheus under the request's route pattern.
func Metrics(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		status := "ok"
		if recorder.status >= http.StatusBadRequest {
			status = "error"
		}

		metrics.RecordMessage(routeLabel(r), status, time.Since(start))
	})
}

func routeLabel(r *http.Request) string {
	if r == nil {
		return "unknown"
	}

	if pattern := r.Pattern; pattern != "" {
		return pattern
	}

	return r.Method + " " + r.URL.Path
}
