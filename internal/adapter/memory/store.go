package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

const (
	backendName      = "memory"
	subscriberBuffer = 64
)

type change struct {
	key   string
	value string
}

type subscriber struct {
	origin string
	ch     chan change
}

// Backend is an in-process key-value space shared by several Stores, the way
// browser storage is shared by the tabs of one origin.
type Backend struct {
	metrics *metrics.StoreMetrics

	mu   sync.Mutex
	data map[uuid.UUID]map[string]string
	subs map[uuid.UUID]map[*subscriber]struct{}
}

type BackendOption func(*Backend)

// WithStoreMetrics counts delivered and dropped change notifications.
func WithStoreMetrics(m *metrics.StoreMetrics) BackendOption {
	return func(b *Backend) { b.metrics = m }
}

func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		data: make(map[uuid.UUID]map[string]string),
		subs: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewStore returns a view of the backend. Subscribers of a view are not
// notified of writes made through that same view.
func (b *Backend) NewStore() *Store {
	return &Store{backend: b, origin: uuid.NewString()}
}

// Store implements domain.SyncStore on top of a Backend.
type Store struct {
	backend *Backend
	origin  string
}

var _ domain.SyncStore = (*Store)(nil)

func (s *Store) Get(_ context.Context, userID uuid.UUID, key string) (string, bool, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[userID][key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, userID uuid.UUID, key, value string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data[userID] == nil {
		b.data[userID] = make(map[string]string)
	}
	b.data[userID][key] = value

	for sub := range b.subs[userID] {
		if sub.origin == s.origin {
			continue
		}
		select {
		case sub.ch <- change{key: key, value: value}:
		default:
			// The subscriber stays behind until the key is written again.
			slog.Warn("Dropping change notification for slow subscriber", "user_id", userID, "key", key)
			b.metrics.Dropped(backendName)
		}
	}
	return nil
}

// Subscribe delivers other views' writes for userID to handler, in order, on
// a dedicated goroutine. It stops on unsubscribe or when ctx is done.
func (s *Store) Subscribe(ctx context.Context, userID uuid.UUID, handler domain.ChangeHandler) (func(), error) {
	b := s.backend
	sub := &subscriber{origin: s.origin, ch: make(chan change, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscriber]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case c := <-sub.ch:
				b.metrics.Received(backendName)
				handler(c.key, c.value)
			case <-subCtx.Done():
				return
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], sub)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			cancel()
		})
	}
	return unsubscribe, nil
}
