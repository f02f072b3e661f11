package domain

import (
	"context"

	"github.com/google/uuid"
)

// Keys of the two persisted entries per user.
const (
	MoodKey    = "mood"
	SignalsKey = "mood_signals"
)

// StateStore is the shared key-value store holding a user's persisted mood
// and signal set. Values are complete documents; the last write wins.
type StateStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error)
	Set(ctx context.Context, userID uuid.UUID, key, value string) error
}

// ChangeHandler receives a value written to key by another context.
type ChangeHandler func(key, value string)

// ChangeFeed delivers external change notifications for a user's keys.
// Implementations must not deliver notifications for writes made through
// the same store instance.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID uuid.UUID, handler ChangeHandler) (unsubscribe func(), err error)
}

// SyncStore is a StateStore that also broadcasts its writes.
type SyncStore interface {
	StateStore
	ChangeFeed
}
