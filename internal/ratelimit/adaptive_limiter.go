package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebot_ratelimit_checks_total",
		Help: "Total number of rate limit checks by backend and result",
	}, []string{"backend", "result"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebot_ratelimit_rejected_total",
		Help: "Total number of widget requests rejected per backend",
	}, []string{"backend"})

	backendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carebot_ratelimit_redis_errors_total",
		Help: "Total number of Redis errors encountered by the limiter",
	})
)

// AdaptiveLimiter checks against the shared redis limiter and degrades to the
// per-instance memory limiter when redis fails. The fallback halves the limit:
// with several instances counting independently, a full per-instance budget
// would multiply the effective rate.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

// NewAdaptiveLimiter creates a limiter that adapts between the redis and
// in-memory backends.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check evaluates the limit using the primary backend, falling back to memory
// on errors.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		return observed("redis", result)
	}

	backendErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory", "key", key, "error", err)

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil {
		return result, err
	}

	return observed("fallback", result)
}

func observed(backend string, result *Result) (*Result, error) {
	if result.Allowed {
		checksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}

	checksTotal.WithLabelValues(backend, "rejected").Inc()
	rejectedTotal.WithLabelValues(backend).Inc()
	return result, ErrLimitExceeded
}
