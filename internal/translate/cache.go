package translate

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache stores finished translations so repeated answers skip the upstream
// call. A miss is signalled by ok == false, never by an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

func cacheKey(text, target string) string {
	return fmt.Sprintf("%s-%s", text, target)
}

// MemoryCache is a bounded LRU cache for single-process deployments.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element
}

type memoryEntry struct {
	key   string
	value string
}

// NewMemoryCache creates an LRU cache holding at most maxSize translations.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 512
	}

	return &MemoryCache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached translation and refreshes its recency.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return "", false
	}

	c.order.MoveToFront(element)
	return element.Value.(*memoryEntry).value, true
}

// Set stores the translation, evicting the least recently used entry when full.
func (c *MemoryCache) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		element.Value.(*memoryEntry).value = value
		c.order.MoveToFront(element)
		return
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: value})

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}

const redisTranslationPrefix = "translation:"

// RedisCache shares translations across instances with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed translation cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &RedisCache{client: client, ttl: ttl}
}

// Get fetches a cached translation if it exists. Redis failures read as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, redisTranslationPrefix+key).Result()
	if err != nil {
		// an unreachable cache reads as a miss, the upstream still works
		return "", false
	}

	return value, true
}

// Set stores the translation with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	_ = c.client.Set(ctx, redisTranslationPrefix+key, value, c.ttl).Err()
}

// TieredCache puts the in-process LRU in front of the shared redis tier, so
// repeated answers skip the redis round-trip and a redis outage only costs
// cross-instance sharing.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache layers local in front of shared. Either may be nil; a nil
// tier is skipped.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get checks the local tier first and promotes shared hits into it.
func (c *TieredCache) Get(ctx context.Context, key string) (string, bool) {
	if c.local != nil {
		if value, ok := c.local.Get(ctx, key); ok {
			return value, true
		}
	}

	if c.shared != nil {
		if value, ok := c.shared.Get(ctx, key); ok {
			if c.local != nil {
				c.local.Set(ctx, key, value)
			}
			return value, true
		}
	}

	return "", false
}

// Set writes the translation to both tiers.
func (c *TieredCache) Set(ctx context.Context, key, value string) {
	if c.local != nil {
		c.local.Set(ctx, key, value)
	}
	if c.shared != nil {
		c.shared.Set(ctx, key, value)
	}
}
