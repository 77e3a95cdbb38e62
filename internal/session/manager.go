package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/icare-life/carebot/internal/conversation"
)

// Factory builds a controller for a new session id.
type Factory func(sessionID string) *conversation.Controller

// ResumeFactory rebuilds a controller around a stored snapshot.
type ResumeFactory func(snapshot conversation.State) *conversation.Controller

// Manager tracks live controllers and mirrors their snapshots into the Store.
type Manager struct {
	mu      sync.Mutex
	live    map[string]*entry
	store   Store
	create  Factory
	resume  ResumeFactory
	log     *slog.Logger
	now     func() time.Time
	idleTTL time.Duration
}

type entry struct {
	ctrl     *conversation.Controller
	lastSeen time.Time
}

// NewManager constructs a Manager. idleTTL bounds how long an untouched
// session stays live before it is ended and evicted.
func NewManager(store Store, create Factory, resume ResumeFactory, log *slog.Logger, idleTTL time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}

	return &Manager{
		live:    make(map[string]*entry),
		store:   store,
		create:  create,
		resume:  resume,
		log:     log,
		now:     time.Now,
		idleTTL: idleTTL,
	}
}

// Create starts a new session and persists its opening snapshot.
func (m *Manager) Create(ctx context.Context) (*conversation.Controller, error) {
	ctrl := m.create(conversation.NewSessionID(m.now()))

	m.mu.Lock()
	m.live[ctrl.SessionID()] = &entry{ctrl: ctrl, lastSeen: m.now()}
	m.mu.Unlock()

	if err := m.persist(ctx, ctrl); err != nil {
		return nil, err
	}

	return ctrl, nil
}

// Get returns the live controller for the session, rehydrating it from the
// store when the process no longer holds it.
func (m *Manager) Get(ctx context.Context, sessionID string) (*conversation.Controller, error) {
	m.mu.Lock()
	if e, ok := m.live[sessionID]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.ctrl, nil
	}
	m.mu.Unlock()

	snapshot, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctrl := m.resume(*snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.live[sessionID]; ok {
		// another request rehydrated it first
		e.lastSeen = m.now()
		return e.ctrl, nil
	}
	m.live[sessionID] = &entry{ctrl: ctrl, lastSeen: m.now()}
	return ctrl, nil
}

// Persist mirrors the controller's current snapshot into the store.
func (m *Manager) Persist(ctx context.Context, ctrl *conversation.Controller) error {
	return m.persist(ctx, ctrl)
}

// End closes the session: the controller records the closing summary, the
// snapshot is removed and the controller is evicted.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	e, ok := m.live[sessionID]
	delete(m.live, sessionID)
	m.mu.Unlock()

	if ok {
		e.ctrl.End(ctx)
	}

	err := m.store.Delete(ctx, sessionID)
	if !ok && err == nil {
		return ErrSessionNotFound
	}
	if !ok && errors.Is(err, ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// States returns snapshots of every live session.
func (m *Manager) States(_ context.Context) ([]*conversation.State, error) {
	m.mu.Lock()
	ctrls := make([]*conversation.Controller, 0, len(m.live))
	for _, e := range m.live {
		ctrls = append(ctrls, e.ctrl)
	}
	m.mu.Unlock()

	states := make([]*conversation.State, 0, len(ctrls))
	for _, ctrl := range ctrls {
		snap := ctrl.Snapshot()
		states = append(states, &snap)
	}

	return states, nil
}

// Shutdown ends every live session, flushing their closing summaries.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.log.Warn("session shutdown flush failed", slog.String("session_id", id), slog.Any("error", err))
		}
	}
}

// Run evicts idle sessions on a schedule until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("session cleaner stopped")
			return
		case <-ticker.C:
			m.evictIdle(ctx)
		}
	}
}

func (m *Manager) evictIdle(ctx context.Context) {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []string
	for id, e := range m.live {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	for _, id := range idle {
		if err := m.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.log.Error("failed to evict idle session", slog.String("session_id", id), slog.Any("error", err))
			continue
		}
		m.log.Info("idle session ended", slog.String("session_id", id))
	}
}

func (m *Manager) persist(ctx context.Context, ctrl *conversation.Controller) error {
	snapshot := ctrl.Snapshot()
	if err := m.store.Save(ctx, &snapshot); err != nil {
		m.log.Error("failed to persist session snapshot",
			slog.String("session_id", snapshot.SessionID), slog.Any("error", err))
		return err
	}
	return nil
}
