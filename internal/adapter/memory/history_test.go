package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

func TestHistory_NewestFirst(t *testing.T) {
	h := NewHistory()
	ctx := context.Background()
	userID := uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, m := range []domain.Mood{domain.MoodCalm, domain.MoodHappy, domain.MoodStressed} {
		require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: m, At: start.Add(time.Duration(i) * time.Hour)}))
	}

	got, err := h.Recent(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MoodStressed, got[0].Mood)
	assert.Equal(t, domain.MoodHappy, got[1].Mood)

	all, err := h.Recent(ctx, userID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistory_Capped(t *testing.T) {
	h := NewHistory()
	ctx := context.Background()
	userID := uuid.New()

	for range domain.MaxHistoryEntries + 5 {
		require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodCalm}))
	}
	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodTired}))

	got, err := h.Recent(ctx, userID, 1000)
	require.NoError(t, err)
	assert.Len(t, got, domain.MaxHistoryEntries)
	assert.Equal(t, domain.MoodTired, got[0].Mood)
}

func TestHistory_UnknownUserAndCopies(t *testing.T) {
	h := NewHistory()
	ctx := context.Background()
	userID := uuid.New()

	got, err := h.Recent(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, h.Record(ctx, userID, domain.MoodChange{Mood: domain.MoodHappy}))
	got, err = h.Recent(ctx, userID, 10)
	require.NoError(t, err)
	got[0].Mood = domain.MoodTired

	again, err := h.Recent(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.MoodHappy, again[0].Mood)
}
