// Package api exposes the conversation engine and the WHO data panel to the
// web widget over HTTP/JSON.
package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/icare-life/carebot/internal/errors"
	"github.com/icare-life/carebot/internal/health"
	"github.com/icare-life/carebot/internal/middleware"
	"github.com/icare-life/carebot/internal/session"
	"github.com/icare-life/carebot/internal/whodata"
	"github.com/icare-life/carebot/pkg/logger"
)

// Server carries the handler dependencies.
type Server struct {
	sessions *session.Manager
	who      *whodata.Client
	checker  *health.Checker
	errs     *apperrors.Handler
	log      *slog.Logger
}

// NewServer constructs the API server. who may be nil when the panel is not
// configured; its routes then answer 503. errs maps upstream failures to the
// messages shown to the visitor; when nil a non-reporting handler is used.
func NewServer(sessions *session.Manager, who *whodata.Client, checker *health.Checker, errs *apperrors.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if errs == nil {
		errs = apperrors.NewHandler(log, false)
	}

	return &Server{
		sessions: sessions,
		who:      who,
		checker:  checker,
		errs:     errs,
		log:      log,
	}
}

// Middleware bundles the optional middleware applied around the API routes.
type Middleware struct {
	RateLimit   *middleware.RateLimitMiddleware
	Idempotency func(http.Handler) http.Handler
}

// Handler builds the routed handler with the full middleware stack applied:
// correlation id, request logging, metrics, then rate limiting and
// idempotency when configured.
func (s *Server) Handler(mw Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", s.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}/messages", s.listMessages)
	mux.HandleFunc("POST /v1/sessions/{id}/messages", s.postMessage)
	mux.HandleFunc("POST /v1/sessions/{id}/options", s.postOption)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.endSession)

	mux.HandleFunc("GET /v1/who/life-expectancy/{country}", s.lifeExpectancy)
	mux.HandleFunc("GET /v1/who/topics", s.topics)
	mux.HandleFunc("GET /v1/who/topics/{id}/details", s.topicDetails)

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /readyz", s.readyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	if mw.Idempotency != nil {
		handler = mw.Idempotency(handler)
	}
	if mw.RateLimit != nil {
		handler = mw.RateLimit.Handle(handler)
	}
	handler = middleware.Metrics(handler)
	handler = middleware.Logging(s.log)(handler)
	handler = logger.Middleware(handler)

	return handler
}
