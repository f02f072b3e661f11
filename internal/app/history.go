package app

import (
	"time"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

// Distribution counts history entries per mood within the last days days
// before now. Every mood is present in the result, possibly with zero.
func Distribution(entries []domain.MoodChange, now time.Time, days int) map[domain.Mood]int {
	dist := make(map[domain.Mood]int, len(domain.AllMoods))
	for _, m := range domain.AllMoods {
		dist[m] = 0
	}

	cutoff := now.AddDate(0, 0, -days)
	for _, e := range entries {
		if e.At.Before(cutoff) {
			continue
		}
		if _, ok := dist[e.Mood]; ok {
			dist[e.Mood]++
		}
	}
	return dist
}
