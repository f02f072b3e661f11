package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

const backendName = "redis"

// stateChange is the message published on a user's change channel.
type stateChange struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Origin string `json:"origin"`
}

func stateKey(userID uuid.UUID, key string) string {
	return "twin:state:" + userID.String() + ":" + key
}

func changeChannel(userID uuid.UUID) string {
	return "twin:changes:" + userID.String()
}

// StateStore implements domain.SyncStore. Every write is published together
// with the store's origin ID; subscribers skip messages carrying their own.
type StateStore struct {
	rdb     *goredis.Client
	origin  string
	metrics *metrics.StoreMetrics
}

var _ domain.SyncStore = (*StateStore)(nil)

// NewStateStore creates a store with a fresh origin ID. m may be nil.
func NewStateStore(rdb *goredis.Client, m *metrics.StoreMetrics) *StateStore {
	return &StateStore{rdb: rdb, origin: uuid.NewString(), metrics: m}
}

func (s *StateStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, stateKey(userID, key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s failed: %w", key, err)
	}
	return v, true, nil
}

// Set writes the value and publishes the change in one transaction.
func (s *StateStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	msg, err := json.Marshal(stateChange{Key: key, Value: value, Origin: s.origin})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, stateKey(userID, key), value, 0)
	pipe.Publish(ctx, changeChannel(userID), msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set %s pipeline failed: %w", key, err)
	}
	return nil
}

// Subscribe listens on the user's change channel until unsubscribe is called
// or ctx is done. It returns once the subscription is confirmed.
func (s *StateStore) Subscribe(ctx context.Context, userID uuid.UUID, handler domain.ChangeHandler) (func(), error) {
	sub := s.rdb.Subscribe(ctx, changeChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to changes failed: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() { _ = sub.Close() }()
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				s.deliver(userID, msg.Payload, handler)
			case <-subCtx.Done():
				return
			}
		}
	}()

	return cancel, nil
}

func (s *StateStore) deliver(userID uuid.UUID, payload string, handler domain.ChangeHandler) {
	var change stateChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil || change.Key == "" {
		slog.Warn("Ignoring unreadable change notification", "user_id", userID, "error", err)
		s.metrics.Dropped(backendName)
		return
	}
	if change.Origin == s.origin {
		return
	}
	s.metrics.Received(backendName)
	handler(change.Key, change.Value)
}
