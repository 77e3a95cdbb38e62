// Package usercache caches verified account lookups so a returning visitor
// does not hit the account service on every session.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/icare-life/carebot/internal/domain"
)

// Cache provides Redis-backed caching for identity verification results.
type Cache struct {
	client *redis.Client
}

// NewCache constructs an identity cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches a cached verification result if it exists.
func (c *Cache) Get(ctx context.Context, email string) (*domain.IdentityResult, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached identity: %w", err)
	}

	var result domain.IdentityResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cached identity: %w", err)
	}

	return &result, nil
}

// Set stores the verification result in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, email string, result *domain.IdentityResult, ttl time.Duration) error {
	if c == nil || c.client == nil || result == nil {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode identity for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached identity: %w", err)
	}

	return nil
}

// Invalidate removes the cached result entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, email string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(email)).Err(); err != nil {
		return fmt.Errorf("delete cached identity: %w", err)
	}

	return nil
}

func cacheKey(email string) string {
	return fmt.Sprintf("identity:%s", email)
}
