package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 3650
)

// HistoryReport is a user's recent mood changes and their distribution.
type HistoryReport struct {
	Entries      []domain.MoodChange
	Distribution map[domain.Mood]int
	Days         int
}

// Service is the application layer. Handlers route all operations through here.
type Service struct {
	sessions    *Sessions
	history     domain.MoodHistory
	clock       clockwork.Clock
	historyDays int
}

// NewService creates the application layer service.
// history may be nil, in which case History returns an empty report.
func NewService(sessions *Sessions, history domain.MoodHistory, clock clockwork.Clock, historyDays int) *Service {
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	historyDays = min(historyDays, maxHistoryDays)
	return &Service{
		sessions:    sessions,
		history:     history,
		clock:       clock,
		historyDays: historyDays,
	}
}

// GetMood returns the user's current mood and signals.
func (s *Service) GetMood(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	engine, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return engine.Snapshot(), nil
}

// MergeSignals pushes a partial signal set and returns the resulting state.
func (s *Service) MergeSignals(ctx context.Context, userID uuid.UUID, partial domain.Signals) (Snapshot, error) {
	var snap Snapshot
	err := s.withEngine(ctx, userID, func(engine *Engine) error {
		if err := engine.MergeSignals(ctx, partial); err != nil {
			return err
		}
		snap = engine.Snapshot()
		return nil
	})
	return snap, err
}

// SetMood overrides the user's mood until the next signal merge.
func (s *Service) SetMood(ctx context.Context, userID uuid.UUID, mood domain.Mood) (Snapshot, error) {
	var snap Snapshot
	err := s.withEngine(ctx, userID, func(engine *Engine) error {
		if err := engine.SetMood(ctx, mood); err != nil {
			return err
		}
		snap = engine.Snapshot()
		return nil
	})
	return snap, err
}

// withEngine runs fn against the user's engine. If the engine was evicted
// between lookup and write, fn runs once more on the rehydrated one.
func (s *Service) withEngine(ctx context.Context, userID uuid.UUID, fn func(*Engine) error) error {
	for attempt := 0; ; attempt++ {
		engine, err := s.sessions.Get(ctx, userID)
		if err != nil {
			return err
		}
		err = fn(engine)
		if !errors.Is(err, errEngineRetired) || attempt > 0 {
			return err
		}
	}
}

// History returns up to limit recent mood changes and the distribution over
// the last days days (the configured default when days <= 0, at most ten
// years).
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, days int) (HistoryReport, error) {
	if days <= 0 {
		days = s.historyDays
	}
	days = min(days, maxHistoryDays)
	if limit <= 0 || limit > domain.MaxHistoryEntries {
		limit = domain.MaxHistoryEntries
	}

	report := HistoryReport{Entries: []domain.MoodChange{}, Days: days}
	if s.history != nil {
		entries, err := s.history.Recent(ctx, userID, domain.MaxHistoryEntries)
		if err != nil {
			return HistoryReport{}, fmt.Errorf("failed to load mood history: %w", err)
		}
		report.Distribution = Distribution(entries, s.clock.Now(), days)
		if len(entries) > limit {
			entries = entries[:limit]
		}
		report.Entries = entries
	} else {
		report.Distribution = Distribution(nil, s.clock.Now(), days)
	}
	return report, nil
}

// EndSession drops the user's in-memory session. Persisted state is kept.
func (s *Service) EndSession(_ context.Context, userID uuid.UUID) error {
	if !s.sessions.Drop(userID) {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ActiveSessions returns the number of sessions open in this process.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

// Now exposes the service clock to callers that stamp producer input.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}
