package ratelimit

import (
	"errors"
	"time"

	"github.com/icare-life/carebot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether rate limiting is configured at all.
func (r *Rules) Enabled() bool {
	return r.config.Requests > 0 && r.config.Window > 0
}

// PerClientLimit returns the request limit and window applied to each client.
func (r *Rules) PerClientLimit() (int, time.Duration, error) {
	if !r.Enabled() {
		return 0, 0, errors.New("rate limit is not configured")
	}

	return r.config.Requests, r.config.Window, nil
}
