package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/icare-life/carebot/internal/conversation"
	"github.com/icare-life/carebot/internal/domain"
	"github.com/icare-life/carebot/internal/usercache"
)

const cacheTTL = 12 * time.Hour

// CachedVerifier serves repeat verifications from the cache so a returning
// visitor skips the account service round trip. OTP checks always go
// upstream.
type CachedVerifier struct {
	next  conversation.IdentityVerifier
	cache *usercache.Cache
	log   *slog.Logger
}

// NewCachedVerifier wraps a verifier with the identity cache.
func NewCachedVerifier(next conversation.IdentityVerifier, cache *usercache.Cache, log *slog.Logger) *CachedVerifier {
	if log == nil {
		log = slog.Default()
	}

	return &CachedVerifier{next: next, cache: cache, log: log}
}

// Verify returns the cached result for the email when present, otherwise
// asks the account service and caches a successful lookup.
func (v *CachedVerifier) Verify(ctx context.Context, email, name string) (domain.IdentityResult, error) {
	if cached, err := v.cache.Get(ctx, email); err != nil {
		v.log.Warn("identity cache read failed", slog.Any("error", err))
	} else if cached != nil {
		return *cached, nil
	}

	result, err := v.next.Verify(ctx, email, name)
	if err != nil {
		return domain.IdentityResult{}, err
	}

	if result.Success {
		if err := v.cache.Set(ctx, email, &result, cacheTTL); err != nil {
			v.log.Warn("identity cache write failed", slog.Any("error", err))
		}
	}

	return result, nil
}

// VerifyOTP forwards to the account service.
func (v *CachedVerifier) VerifyOTP(ctx context.Context, email, otp string) (bool, error) {
	return v.next.VerifyOTP(ctx, email, otp)
}
