package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/icare-life/carebot/internal/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// bufferingRecorder captures the full response so it can be stored for replay.
type bufferingRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferingRecorder() *bufferingRecorder {
	return &bufferingRecorder{header: make(http.Header), status: http.StatusOK}
}

func (r *bufferingRecorder) Header() http.Header { return r.header }

func (r *bufferingRecorder) WriteHeader(status int) { r.status = status }

func (r *bufferingRecorder) Write(p []byte) (int, error) { return r.body.Write(p) }

// Idempotency ensures mutating requests execute at most once per widget
// supplied Idempotency-Key. Requests without the header pass through.
func Idempotency(manager idempotency.Manager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if manager == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			key = idempotency.GenerateKey(r.Method, r.URL.Path, key)

			result, err := manager.Execute(r.Context(), key, 24*time.Hour, func(ctx context.Context) (int, []byte, error) {
				recorder := newBufferingRecorder()
				next.ServeHTTP(recorder, r.WithContext(ctx))
				return recorder.status, recorder.body.Bytes(), nil
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					http.Error(w, "request is already being processed", http.StatusConflict)
					return
				}

				log.Error("idempotent handler failed", slog.String("key", key), slog.Any("error", err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			if result.FromCache {
				w.Header().Set("Idempotent-Replay", "true")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(result.StatusCode)
			_, _ = w.Write(result.Body)
		})
	}
}
