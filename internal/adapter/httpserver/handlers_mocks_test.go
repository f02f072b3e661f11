package httpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Eshwar187/twin-clone-01/internal/app"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
	"github.com/Eshwar187/twin-clone-01/internal/platform/config"
)

type mockAppService struct {
	getMoodFn      func(ctx context.Context, userID uuid.UUID) (app.Snapshot, error)
	mergeSignalsFn func(ctx context.Context, userID uuid.UUID, partial domain.Signals) (app.Snapshot, error)
	setMoodFn      func(ctx context.Context, userID uuid.UUID, mood domain.Mood) (app.Snapshot, error)
	historyFn      func(ctx context.Context, userID uuid.UUID, limit, days int) (app.HistoryReport, error)
	endSessionFn   func(ctx context.Context, userID uuid.UUID) error
	activeSessions int
}

func (m *mockAppService) GetMood(ctx context.Context, userID uuid.UUID) (app.Snapshot, error) {
	if m.getMoodFn != nil {
		return m.getMoodFn(ctx, userID)
	}
	return app.Snapshot{Mood: domain.DefaultMood}, nil
}

func (m *mockAppService) MergeSignals(ctx context.Context, userID uuid.UUID, partial domain.Signals) (app.Snapshot, error) {
	if m.mergeSignalsFn != nil {
		return m.mergeSignalsFn(ctx, userID, partial)
	}
	return app.Snapshot{Mood: app.Derive(partial), Signals: partial}, nil
}

func (m *mockAppService) SetMood(ctx context.Context, userID uuid.UUID, mood domain.Mood) (app.Snapshot, error) {
	if m.setMoodFn != nil {
		return m.setMoodFn(ctx, userID, mood)
	}
	return app.Snapshot{Mood: mood}, nil
}

func (m *mockAppService) History(ctx context.Context, userID uuid.UUID, limit, days int) (app.HistoryReport, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID, limit, days)
	}
	return app.HistoryReport{}, errors.New("not implemented")
}

func (m *mockAppService) EndSession(ctx context.Context, userID uuid.UUID) error {
	if m.endSessionFn != nil {
		return m.endSessionFn(ctx, userID)
	}
	return nil
}

func (m *mockAppService) ActiveSessions() int {
	return m.activeSessions
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:         "test",
		Port:           "0",
		StoreBackend:   config.BackendMemory,
		HistoryDays:    30,
		WriteRateLimit: 1000,
		WriteRateBurst: 1000,
	}
}

func newTestServer(t *testing.T, appSvc appService, opts ...Option) *Server {
	t.Helper()
	return NewServer(testConfig(), appSvc, opts...)
}
