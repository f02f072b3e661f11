package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

const (
	insertChange = `INSERT INTO mood_history (user_id, mood, source, changed_at) VALUES ($1, $2, $3, $4)`

	// Keeps the newest MaxHistoryEntries rows of one user.
	trimChanges = `DELETE FROM mood_history
WHERE user_id = $1 AND id NOT IN (
    SELECT id FROM mood_history WHERE user_id = $1
    ORDER BY changed_at DESC, id DESC
    LIMIT $2
)`

	selectRecent = `SELECT mood, source, changed_at FROM mood_history
WHERE user_id = $1
ORDER BY changed_at DESC, id DESC
LIMIT $2`
)

// History stores mood changes in Postgres. Unlike the Redis list it
// survives a cache flush, so it can back any state store.
type History struct {
	pool *pgxpool.Pool
}

var _ domain.MoodHistory = (*History)(nil)

func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

func (h *History) Record(ctx context.Context, userID uuid.UUID, change domain.MoodChange) error {
	err := pgx.BeginFunc(ctx, h.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertChange, userID, string(change.Mood), string(change.Source), change.At); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, trimChanges, userID, domain.MaxHistoryEntries)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record mood change: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Rows holding a mood
// outside the enumeration are skipped.
func (h *History) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.MoodChange, error) {
	if limit <= 0 || limit > domain.MaxHistoryEntries {
		limit = domain.MaxHistoryEntries
	}

	rows, err := h.pool.Query(ctx, selectRecent, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MoodChange, 0, limit)
	for rows.Next() {
		var (
			raw, source string
			change      domain.MoodChange
		)
		if err := rows.Scan(&raw, &source, &change.At); err != nil {
			return nil, fmt.Errorf("failed to scan mood history: %w", err)
		}
		mood, err := domain.ParseMood(raw)
		if err != nil {
			slog.Debug("Skipping unreadable history row", "user_id", userID, "error", err)
			continue
		}
		change.Mood = mood
		change.Source = domain.MoodSource(source)
		change.At = change.At.UTC()
		out = append(out, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mood history: %w", err)
	}
	return out, nil
}
