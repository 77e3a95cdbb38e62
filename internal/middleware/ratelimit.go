package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/icare-life/carebot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-client rate limits on API requests.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle returns an HTTP middleware that enforces per-client rate limits.
// Clients are keyed by remote address, falling back to X-Forwarded-For when
// the service runs behind a proxy.
func (m *RateLimitMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil || m.rules == nil || !m.rules.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		limit, window, err := m.rules.PerClientLimit()
		if err != nil {
			m.log.Error("failed to load per-client rate limit", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		key := ratelimit.ClientKey(clientAddr(r))
		result, err := m.limiter.Check(r.Context(), key, limit, window)
		if err != nil && result == nil {
			// limiter backend failure must not take the API down
			m.log.Warn("rate limiter unavailable, letting request pass", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		if result != nil {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}

		if result != nil && !result.Allowed {
			m.log.Info("request rate limited", slog.String("client", key))
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
