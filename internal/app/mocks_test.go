package app

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

var errStoreDown = errors.New("store unavailable")

// mockStore is an in-memory StateStore with optional failure injection.
type mockStore struct {
	mu      sync.Mutex
	values  map[string]string
	getErr  error
	setErr  error
	sets    int
	getsFor map[string]int
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string]string), getsFor: make(map[string]int)}
}

func (m *mockStore) Get(_ context.Context, userID uuid.UUID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getsFor[userID.String()]++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, _ uuid.UUID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockStore) failGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *mockStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *mockStore) gets(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getsFor[userID.String()]
}

// mockSyncStore adds a change feed whose handlers tests invoke by hand.
type mockSyncStore struct {
	*mockStore
	subscribeFn func(ctx context.Context, userID uuid.UUID, handler domain.ChangeHandler) (func(), error)

	mu           sync.Mutex
	handlers     map[uuid.UUID]domain.ChangeHandler
	unsubscribed map[uuid.UUID]int
}

func newMockSyncStore() *mockSyncStore {
	return &mockSyncStore{
		mockStore:    newMockStore(),
		handlers:     make(map[uuid.UUID]domain.ChangeHandler),
		unsubscribed: make(map[uuid.UUID]int),
	}
}

func (m *mockSyncStore) Subscribe(ctx context.Context, userID uuid.UUID, handler domain.ChangeHandler) (func(), error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, userID, handler)
	}
	m.mu.Lock()
	m.handlers[userID] = handler
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, userID)
		m.unsubscribed[userID]++
	}, nil
}

func (m *mockSyncStore) notify(userID uuid.UUID, key, value string) bool {
	m.mu.Lock()
	h, ok := m.handlers[userID]
	m.mu.Unlock()
	if ok {
		h(key, value)
	}
	return ok
}

func (m *mockSyncStore) unsubscribeCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed[userID]
}

type mockHistory struct {
	mu      sync.Mutex
	entries []domain.MoodChange
	err     error
}

func (m *mockHistory) Record(_ context.Context, _ uuid.UUID, change domain.MoodChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append([]domain.MoodChange{change}, m.entries...)
	return nil
}

func (m *mockHistory) Recent(_ context.Context, _ uuid.UUID, limit int) ([]domain.MoodChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]domain.MoodChange(nil), m.entries[:limit]...), nil
}

func (m *mockHistory) moods() []domain.Mood {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Mood, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Mood)
	}
	return out
}

// recordingMetrics counts calls per event name.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
	active int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (r *recordingMetrics) inc(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

func (r *recordingMetrics) get(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *recordingMetrics) MoodDerived(mood domain.Mood, rule string) {
	r.inc("derived:" + string(mood))
}
func (r *recordingMetrics) MoodOverridden(mood domain.Mood) { r.inc("override:" + string(mood)) }
func (r *recordingMetrics) RemoteAdopted(key string)        { r.inc("remote:" + key) }
func (r *recordingMetrics) PersistFailed(key string)        { r.inc("persist_failed:" + key) }
func (r *recordingMetrics) HydrateReset(key string)         { r.inc("hydrate_reset:" + key) }
func (r *recordingMetrics) SessionsActive(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = n
}

func (r *recordingMetrics) activeSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
