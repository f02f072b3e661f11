package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

type session struct {
	engine      *Engine
	unsubscribe func()
}

// Sessions holds exactly one Engine per user for this process. Engines are
// created lazily, subscribed to the change feed and hydrated from the store.
type Sessions struct {
	store   domain.SyncStore
	history domain.MoodHistory
	metrics Metrics
	clock   clockwork.Clock

	// feedCtx outlives requests; subscriptions end on Close.
	feedCtx    context.Context
	feedCancel context.CancelFunc

	hydrateGroup singleflight.Group

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closed   bool
}

type SessionsOption func(*Sessions)

func WithSessionHistory(h domain.MoodHistory) SessionsOption {
	return func(s *Sessions) { s.history = h }
}

func WithSessionMetrics(m Metrics) SessionsOption {
	return func(s *Sessions) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithSessionClock(c clockwork.Clock) SessionsOption {
	return func(s *Sessions) { s.clock = c }
}

func NewSessions(store domain.SyncStore, opts ...SessionsOption) *Sessions {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sessions{
		store:      store,
		metrics:    noopMetrics{},
		clock:      clockwork.NewRealClock(),
		feedCtx:    ctx,
		feedCancel: cancel,
		sessions:   make(map[uuid.UUID]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's engine, creating and hydrating it on first use.
// Concurrent first calls for the same user share one hydration.
func (s *Sessions) Get(ctx context.Context, userID uuid.UUID) (*Engine, error) {
	if engine, ok := s.lookup(userID); ok {
		return engine, nil
	}

	v, err, _ := s.hydrateGroup.Do(userID.String(), func() (any, error) {
		if engine, ok := s.lookup(userID); ok {
			return engine, nil
		}
		return s.open(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

func (s *Sessions) lookup(userID uuid.UUID) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return sess.engine, true
}

func (s *Sessions) open(ctx context.Context, userID uuid.UUID) (*Engine, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("open session %s: sessions closed", userID)
	}

	engine := NewEngine(userID, s.store,
		WithHistory(s.history),
		WithMetrics(s.metrics),
		WithClock(s.clock),
	)

	// Subscribe before hydrating so that no write between the read and the
	// subscription is lost; the store is written before it notifies.
	unsubscribe, err := s.store.Subscribe(s.feedCtx, userID, engine.ApplyRemote)
	if err != nil {
		slog.WarnContext(ctx, "Change feed unavailable, session will not sync", "user_id", userID, "error", err)
		unsubscribe = func() {}
	}

	if err := engine.Hydrate(ctx); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("open session %s: %w: %w", userID, domain.ErrStateUnavailable, err)
	}

	s.mu.Lock()
	s.sessions[userID] = &session{engine: engine, unsubscribe: unsubscribe}
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SessionsActive(n)
	slog.DebugContext(ctx, "Session opened", "user_id", userID, "mood", engine.Mood())
	return engine, nil
}

// Drop removes a user's session, e.g. on logout. It reports whether a
// session existed. Persisted state is left untouched.
func (s *Sessions) Drop(userID uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.unsubscribe()
	s.metrics.SessionsActive(n)
	return true
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions not used for longer than maxIdle and returns how
// many were dropped. Idleness is decided under each engine's lock; a caller
// still holding an evicted engine gets errEngineRetired on its next write
// instead of writing behind the back of a replacement.
func (s *Sessions) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.clock.Now().Add(-maxIdle)

	s.mu.Lock()
	var evicted []*session
	for id, sess := range s.sessions {
		if sess.engine.retireIfIdle(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.unsubscribe()
	}
	if len(evicted) > 0 {
		s.metrics.SessionsActive(n)
	}
	return len(evicted)
}

// StartEviction runs EvictIdle every interval until the returned stop
// function is called.
func (s *Sessions) StartEviction(interval, maxIdle time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := s.EvictIdle(maxIdle); evicted > 0 {
					slog.Debug("Evicted idle sessions", "count", evicted, "remaining", s.Len())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Close unsubscribes every session and refuses new ones.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.unsubscribe()
	}
	s.feedCancel()
	s.metrics.SessionsActive(0)
}
