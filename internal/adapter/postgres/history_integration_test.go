package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

func TestHistory_RecordAndRecent(t *testing.T) {
	h := NewHistory(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodCalm, Source: domain.MoodSourceDerived, At: start}))
	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodHappy, Source: domain.MoodSourceOverride, At: start.Add(time.Minute)}))
	require.NoError(t, h.Record(ctx, uuid.New(), domain.MoodChange{Mood: domain.MoodTired, Source: domain.MoodSourceDerived, At: start}))

	got, err := h.Recent(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MoodChange{Mood: domain.MoodHappy, Source: domain.MoodSourceOverride, At: start.Add(time.Minute)}, got[0])
	assert.Equal(t, domain.MoodCalm, got[1].Mood)

	got, err = h.Recent(ctx, userID, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistory_SameTimestampKeepsInsertOrder(t *testing.T) {
	h := NewHistory(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodCalm, At: at}))
	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodStressed, At: at}))

	got, err := h.Recent(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MoodStressed, got[0].Mood)
}

func TestHistory_Capped(t *testing.T) {
	pool := setupTestDB(t)
	h := NewHistory(pool)
	ctx := context.Background()
	userID := uuid.New()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := range domain.MaxHistoryEntries + 10 {
		require.NoError(t, h.Record(ctx, userID, domain.MoodChange{
			Mood: domain.MoodCalm, Source: domain.MoodSourceDerived, At: start.Add(time.Duration(i) * time.Minute),
		}))
	}

	var rows int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM mood_history WHERE user_id = $1", userID).Scan(&rows))
	assert.Equal(t, domain.MaxHistoryEntries, rows)

	got, err := h.Recent(ctx, userID, 1000)
	require.NoError(t, err)
	require.Len(t, got, domain.MaxHistoryEntries)
	assert.Equal(t, start.Add(time.Duration(domain.MaxHistoryEntries+9)*time.Minute), got[0].At)
}

func TestHistory_SkipsUnreadableRows(t *testing.T) {
	pool := setupTestDB(t)
	h := NewHistory(pool)
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodHappy, At: at}))
	_, err := pool.Exec(ctx, insertChange, userID, "melancholic", "derived", at.Add(time.Second))
	require.NoError(t, err)

	got, err := h.Recent(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.MoodHappy, got[0].Mood)
}
