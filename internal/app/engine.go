package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

// Metrics receives engine and session events. Implementations must be safe
// for concurrent use.
type Metrics interface {
	MoodDerived(mood domain.Mood, rule string)
	MoodOverridden(mood domain.Mood)
	RemoteAdopted(key string)
	PersistFailed(key string)
	HydrateReset(key string)
	SessionsActive(n int)
}

// errEngineRetired is returned by writes to an engine that was evicted after
// the caller obtained it. Callers fetch the live engine and try again.
var errEngineRetired = errors.New("engine retired")

type noopMetrics struct{}

func (noopMetrics) MoodDerived(domain.Mood, string) {}
func (noopMetrics) MoodOverridden(domain.Mood)      {}
func (noopMetrics) RemoteAdopted(string)            {}
func (noopMetrics) PersistFailed(string)            {}
func (noopMetrics) HydrateReset(string)             {}
func (noopMetrics) SessionsActive(int)              {}

// Snapshot is a consistent read of an engine's state.
type Snapshot struct {
	Mood    domain.Mood
	Signals domain.Signals
}

// Engine owns one user's signal set and mood.
//
// Every mutation recomputes (or overrides) the mood, then writes both
// entries to the store. Store failures are logged and swallowed: the
// in-memory state stays authoritative for this process.
type Engine struct {
	userID  uuid.UUID
	store   domain.StateStore
	history domain.MoodHistory
	metrics Metrics
	clock   clockwork.Clock

	mu       sync.Mutex
	signals  domain.Signals
	mood     domain.Mood
	lastUsed time.Time
	retired  bool
}

type EngineOption func(*Engine)

func WithHistory(h domain.MoodHistory) EngineOption {
	return func(e *Engine) { e.history = h }
}

func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithClock(c clockwork.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// NewEngine creates an engine with default state (no signals, calm).
// Call Hydrate to load persisted state.
func NewEngine(userID uuid.UUID, store domain.StateStore, opts ...EngineOption) *Engine {
	e := &Engine{
		userID:  userID,
		store:   store,
		metrics: noopMetrics{},
		clock:   clockwork.NewRealClock(),
		mood:    domain.DefaultMood,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lastUsed = e.clock.Now()
	return e
}

func (e *Engine) UserID() uuid.UUID {
	return e.userID
}

// Hydrate replaces the in-memory state with the persisted one. Each entry
// that is missing or unreadable falls back to its default independently.
// The mood is adopted as stored, not re-derived. A failed read returns an
// error and leaves the state untouched, so defaults never overwrite data
// that could not be loaded.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mood, err := e.loadMood(ctx)
	if err != nil {
		return err
	}
	signals, err := e.loadSignals(ctx)
	if err != nil {
		return err
	}
	e.mood = mood
	e.signals = signals
	e.lastUsed = e.clock.Now()
	return nil
}

func (e *Engine) loadMood(ctx context.Context) (domain.Mood, error) {
	raw, ok, err := e.store.Get(ctx, e.userID, domain.MoodKey)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", domain.MoodKey, err)
	}
	if !ok {
		return domain.DefaultMood, nil
	}
	mood, err := domain.ParseMood(raw)
	if err != nil {
		slog.DebugContext(ctx, "Stored mood unreadable, using default", "user_id", e.userID, "error", err)
		e.metrics.HydrateReset(domain.MoodKey)
		return domain.DefaultMood, nil
	}
	return mood, nil
}

func (e *Engine) loadSignals(ctx context.Context) (domain.Signals, error) {
	raw, ok, err := e.store.Get(ctx, e.userID, domain.SignalsKey)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("load %s: %w", domain.SignalsKey, err)
	}
	if !ok || raw == "" {
		return domain.Signals{}, nil
	}
	var signals domain.Signals
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		slog.DebugContext(ctx, "Stored signals unreadable, using empty set", "user_id", e.userID, "error", err)
		e.metrics.HydrateReset(domain.SignalsKey)
		return domain.Signals{}, nil
	}
	return signals, nil
}

// MergeSignals overwrites the signals present in partial, keeps the others,
// persists the result and re-derives the mood from the full set. Values are
// not range-checked.
func (e *Engine) MergeSignals(ctx context.Context, partial domain.Signals) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retired {
		return errEngineRetired
	}

	e.lastUsed = e.clock.Now()
	e.signals = e.signals.Merge(partial)
	e.persistSignals(ctx)

	next, rule := DeriveWithRule(e.signals)
	e.metrics.MoodDerived(next, rule)
	changed := next != e.mood
	e.mood = next
	e.persistMood(ctx)

	if changed {
		slog.DebugContext(ctx, "Mood derived", "user_id", e.userID, "mood", next, "rule", rule)
		e.recordHistory(ctx, next, domain.MoodSourceDerived)
	}
	return nil
}

// SetMood overrides the mood without touching the signals. The override
// holds until the next MergeSignals re-derives it.
func (e *Engine) SetMood(ctx context.Context, mood domain.Mood) error {
	if !mood.Valid() {
		return fmt.Errorf("set mood: %w: %q", domain.ErrUnknownMood, mood)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retired {
		return errEngineRetired
	}

	e.lastUsed = e.clock.Now()
	changed := mood != e.mood
	e.mood = mood
	e.metrics.MoodOverridden(mood)
	e.persistMood(ctx)

	if changed {
		e.recordHistory(ctx, mood, domain.MoodSourceOverride)
	}
	return nil
}

// Mood returns the current derived or overridden mood.
func (e *Engine) Mood() domain.Mood {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = e.clock.Now()
	return e.mood
}

// Signals returns a copy of the current signal set.
func (e *Engine) Signals() domain.Signals {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = e.clock.Now()
	return e.signals.Clone()
}

// Snapshot returns mood and signals read under one lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = e.clock.Now()
	return Snapshot{Mood: e.mood, Signals: e.signals.Clone()}
}

// LastUsed returns when the engine was last read or written locally.
func (e *Engine) LastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// retireIfIdle retires the engine if it has not been used since cutoff. It
// holds the engine lock, so a write either lands before the check (and keeps
// the engine alive) or is refused afterwards.
func (e *Engine) retireIfIdle(cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.lastUsed.Before(cutoff) {
		return false
	}
	e.retired = true
	return true
}

// ApplyRemote adopts a value another context wrote to the store. The value
// is taken as-is, without re-deriving, because the writer already derived
// it. Unreadable payloads and unknown keys are ignored.
func (e *Engine) ApplyRemote(key, value string) {
	switch key {
	case domain.MoodKey:
		mood, err := domain.ParseMood(value)
		if err != nil {
			slog.Debug("Ignoring unreadable remote mood", "user_id", e.userID, "error", err)
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if mood == e.mood {
			return
		}
		e.mood = mood
		e.metrics.RemoteAdopted(key)

	case domain.SignalsKey:
		var signals domain.Signals
		if err := json.Unmarshal([]byte(value), &signals); err != nil {
			slog.Debug("Ignoring unreadable remote signals", "user_id", e.userID, "error", err)
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if signals.Equal(e.signals) {
			return
		}
		e.signals = signals
		e.metrics.RemoteAdopted(key)
	}
}

func (e *Engine) persistMood(ctx context.Context) {
	if err := e.store.Set(ctx, e.userID, domain.MoodKey, string(e.mood)); err != nil {
		slog.WarnContext(ctx, "Failed to persist mood", "user_id", e.userID, "error", err)
		e.metrics.PersistFailed(domain.MoodKey)
	}
}

func (e *Engine) persistSignals(ctx context.Context) {
	data, err := json.Marshal(e.signals)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode signals", "user_id", e.userID, "error", err)
		e.metrics.PersistFailed(domain.SignalsKey)
		return
	}
	if err := e.store.Set(ctx, e.userID, domain.SignalsKey, string(data)); err != nil {
		slog.WarnContext(ctx, "Failed to persist signals", "user_id", e.userID, "error", err)
		e.metrics.PersistFailed(domain.SignalsKey)
	}
}

func (e *Engine) recordHistory(ctx context.Context, mood domain.Mood, source domain.MoodSource) {
	if e.history == nil {
		return
	}
	change := domain.MoodChange{Mood: mood, Source: source, At: e.clock.Now().UTC()}
	if err := e.history.Record(ctx, e.userID, change); err != nil {
		slog.WarnContext(ctx, "Failed to record mood history", "user_id", e.userID, "mood", mood, "error", err)
	}
}
