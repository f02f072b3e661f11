package domain

import "fmt"

// Mood is the discrete avatar state derived from a user's signals.
type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodStressed  Mood = "stressed"
	MoodCalm      Mood = "calm"
	MoodTired     Mood = "tired"
	MoodEnergetic Mood = "energetic"
)

// DefaultMood is the mood of a fresh session and the fallback for unreadable state.
const DefaultMood = MoodCalm

// AllMoods lists every mood in a stable order.
var AllMoods = []Mood{MoodHappy, MoodStressed, MoodCalm, MoodTired, MoodEnergetic}

// ParseMood converts a string to a Mood, rejecting anything outside the enumeration.
func ParseMood(s string) (Mood, error) {
	switch m := Mood(s); m {
	case MoodHappy, MoodStressed, MoodCalm, MoodTired, MoodEnergetic:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
	}
}

func (m Mood) Valid() bool {
	_, err := ParseMood(string(m))
	return err == nil
}

func (m Mood) String() string {
	return string(m)
}

// Emoji returns the avatar glyph shown for the mood.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodStressed:
		return "😰"
	case MoodCalm:
		return "😌"
	case MoodTired:
		return "😴"
	case MoodEnergetic:
		return "⚡"
	default:
		return ""
	}
}
