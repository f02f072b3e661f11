package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

// History keeps mood changes in process memory, newest first.
type History struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]domain.MoodChange
}

var _ domain.MoodHistory = (*History)(nil)

func NewHistory() *History {
	return &History{entries: make(map[uuid.UUID][]domain.MoodChange)}
}

func (h *History) Record(_ context.Context, userID uuid.UUID, change domain.MoodChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append([]domain.MoodChange{change}, h.entries[userID]...)
	if len(entries) > domain.MaxHistoryEntries {
		entries = entries[:domain.MaxHistoryEntries]
	}
	h.entries[userID] = entries
	return nil
}

func (h *History) Recent(_ context.Context, userID uuid.UUID, limit int) ([]domain.MoodChange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.MoodChange, len(entries))
	copy(out, entries)
	return out, nil
}
