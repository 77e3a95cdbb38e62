package ratelimit

import (
	"context"
	"errors"
	"time"
)

// keyPrefix namespaces limiter state in redis; the cleaner scans it.
const keyPrefix = "ratelimit:"

// ClientKey names the limit bucket for one widget client. Clients are keyed
// by address because the widget talks anonymously until identity capture.
func ClientKey(client string) string {
	return "client:" + client
}

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter bounds how fast a widget client may send messages.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")
