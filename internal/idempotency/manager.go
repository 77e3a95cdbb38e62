// Package idempotency deduplicates retried widget requests: a replayed
// Idempotency-Key returns the stored response instead of re-running the
// conversation event.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation produces the HTTP status and body for a request executed once.
type Operation func(ctx context.Context) (int, []byte, error)

// Result is either a freshly computed response or a cached replay.
type Result struct {
	StatusCode int
	Body       []byte
	FromCache  bool
}

type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, 5*time.Minute)
		if err != nil {
			return nil, err
		}

		if !locked {
			record, err := m.store.Get(ctx, key)
			if err != nil {
				return nil, err
			}

			if record == nil {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}

			switch record.Status {
			case StatusProcessing:
				return nil, ErrRequestInProgress
			case StatusCompleted:
				return &Result{
					StatusCode: record.StatusCode,
					Body:       record.Response,
					FromCache:  true,
				}, nil
			default:
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}
		}

		defer m.store.ReleaseLock(ctx, key)

		status, body, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		if err := m.store.Set(ctx, key, &Record{
			Status:     StatusCompleted,
			StatusCode: status,
			Response:   body,
		}, ttl); err != nil {
			return nil, err
		}

		return &Result{
			StatusCode: status,
			Body:       body,
			FromCache:  false,
		}, nil
	}
}
