package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxHistoryEntries bounds the per-user mood history.
const MaxHistoryEntries = 100

// MoodSource tells how a mood became current.
type MoodSource string

const (
	MoodSourceDerived  MoodSource = "derived"
	MoodSourceOverride MoodSource = "override"
)

// MoodChange is one entry of a user's mood history.
type MoodChange struct {
	Mood   Mood       `json:"mood"`
	Source MoodSource `json:"source"`
	At     time.Time  `json:"at"`
}

// MoodHistory keeps the most recent mood changes per user, newest first.
type MoodHistory interface {
	Record(ctx context.Context, userID uuid.UUID, change MoodChange) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]MoodChange, error)
}
