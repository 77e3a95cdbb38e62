package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/icare-life/carebot/internal/conversation"
	appredis "github.com/icare-life/carebot/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "session:state:"
	sessionScanBatch  = 100
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore persists conversation snapshots in Redis as JSON with a TTL, so
// a widget reload within the TTL resumes the same conversation.
type RedisStore struct {
	client *appredis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed implementation of Store.
func NewRedisStore(client *appredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the stored snapshot for the given session.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*conversation.State, error) {
	value, err := s.client.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session from redis: %w", err)
	}

	var snapshot conversation.State
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
	}

	return &snapshot, nil
}

// Save stores the snapshot under its session id.
func (s *RedisStore) Save(ctx context.Context, snapshot *conversation.State) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+snapshot.SessionID, payload, s.ttl); err != nil {
		return fmt.Errorf("set session to redis: %w", err)
	}

	return nil
}

// Delete removes the snapshot for the given session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Delete(ctx, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}

	return nil
}

// List returns all stored snapshots, scanning keys in batches.
func (s *RedisStore) List(ctx context.Context) ([]*conversation.State, error) {
	var (
		states []*conversation.State
		cursor uint64
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", sessionScanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan session keys: %w", err)
		}

		for _, key := range keys {
			snapshot, err := s.Get(ctx, key[len(sessionKeyPrefix):])
			if err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					continue
				}
				return nil, err
			}
			states = append(states, snapshot)
		}

		if nextCursor == 0 {
			return states, nil
		}
		cursor = nextCursor
	}
}
