package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// hook is a named teardown step, e.g. flushing live sessions to the store or
// draining the recorder sinks.
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Shutdown runs registered teardown steps in parallel when the HTTP server
// stops accepting requests.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named teardown step. Steps registered after Execute has
// started are ignored for that run.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Execute runs all registered steps concurrently and waits for them. Every
// step gets the full ctx deadline; failures are joined, not short-circuited,
// so one stuck component cannot keep the others from flushing.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error

	for _, h := range hooks {
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()

			s.log.Info("running shutdown hook", slog.String("hook", h.name))
			if err := h.fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.name), slog.Any("error", err))
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				errMu.Unlock()
				return
			}

			s.log.Info("shutdown hook completed", slog.String("hook", h.name))
		}(h)
	}

	wg.Wait()
	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}
