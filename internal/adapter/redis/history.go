package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

func historyKey(userID uuid.UUID) string {
	return "twin:history:" + userID.String()
}

// History keeps each user's mood changes in a capped Redis list, newest first.
type History struct {
	rdb *goredis.Client
}

var _ domain.MoodHistory = (*History)(nil)

func NewHistory(rdb *goredis.Client) *History {
	return &History{rdb: rdb}
}

func (h *History) Record(ctx context.Context, userID uuid.UUID, change domain.MoodChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal mood change: %w", err)
	}

	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, historyKey(userID), data)
	pipe.LTrim(ctx, historyKey(userID), 0, domain.MaxHistoryEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record mood change pipeline failed: %w", err)
	}
	return nil
}

func (h *History) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.MoodChange, error) {
	if limit <= 0 {
		limit = domain.MaxHistoryEntries
	}
	raw, err := h.rdb.LRange(ctx, historyKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange history failed: %w", err)
	}

	entries := make([]domain.MoodChange, 0, len(raw))
	for _, item := range raw {
		var change domain.MoodChange
		if err := json.Unmarshal([]byte(item), &change); err != nil {
			slog.Warn("Skipping unreadable mood history entry", "user_id", userID, "error", err)
			continue
		}
		entries = append(entries, change)
	}
	return entries, nil
}
