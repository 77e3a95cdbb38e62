package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// history holds the send timestamps of one widget client inside the window.
type history struct {
	sends []time.Time
}

// MemoryLimiter is the single-process fallback used when redis is down. It
// keeps per-client send history in memory, so limits are per instance and
// reset on restart.
type MemoryLimiter struct {
	mu      sync.RWMutex
	clients map[string]*history
	log     *slog.Logger
}

// NewMemoryLimiter returns an in-memory limiter implementation.
func NewMemoryLimiter(log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		clients: make(map[string]*history),
		log:     log,
	}
}

// Check enforces a sliding-window limit on the client's message rate.
func (m *MemoryLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.clients[key]
	if h == nil {
		h = &history{sends: make([]time.Time, 0, 8)}
		m.clients[key] = h
	}

	h.pruneBefore(windowStart)
	count := len(h.sends)

	allowed := count < limit
	if allowed {
		h.sends = append(h.sends, now)
		count++
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}

	if !allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}

// Cleanup drops clients that have not sent anything for more than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, h := range m.clients {
		if len(h.sends) == 0 || h.sends[len(h.sends)-1].Before(cutoff) {
			delete(m.clients, key)
		}
	}
}

// pruneBefore drops sends older than windowStart, keeping order.
func (h *history) pruneBefore(windowStart time.Time) {
	first := 0
	for first < len(h.sends) && h.sends[first].Before(windowStart) {
		first++
	}

	switch {
	case first == 0:
	case first >= len(h.sends):
		h.sends = h.sends[:0]
	default:
		copy(h.sends, h.sends[first:])
		h.sends = h.sends[:len(h.sends)-first]
	}
}
