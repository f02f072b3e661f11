package app

import "github.com/Eshwar187/twin-clone-01/internal/domain"

// Thresholds of the derivation rules.
const (
	stressBudgetUsedAbove = 90.0
	stressOverdueBills    = 0.0 // stressed when strictly above
	stressOpenTasks       = 8.0
	stressEventsToday     = 6.0

	tiredSleepBelow = 6.0

	energeticSleep = 8.0
	energeticWater = 8.0
	energeticSteps = 10000.0

	happyWellness = 7.0
	happySleep    = 7.0
	happyWater    = 6.0
)

// Values assumed for absent signals. A missing sleep reading must never make
// the user tired. A missing wellness score leans towards happy only while no
// health reading (sleep, water, steps) has arrived either.
const (
	defaultCount         = 0.0
	defaultBudgetUsed    = 0.0
	defaultTiredSleep    = 8.0
	defaultPositiveSleep = 0.0
	defaultWellnessScore = 7.5
)

// Rule maps a signal set to a mood when its condition holds.
type Rule struct {
	Mood  domain.Mood
	Name  string
	Match func(s domain.Signals) bool
}

// Rules is the ordered decision list. The first matching rule wins, so
// stress outranks fatigue, which outranks energy and happiness.
var Rules = []Rule{
	{Mood: domain.MoodStressed, Name: "stress", Match: isStressed},
	{Mood: domain.MoodTired, Name: "fatigue", Match: isTired},
	{Mood: domain.MoodEnergetic, Name: "peak-health", Match: isEnergetic},
	{Mood: domain.MoodHappy, Name: "generally-good", Match: isHappy},
}

// Derive returns the mood for a signal set. It is a pure function.
func Derive(s domain.Signals) domain.Mood {
	mood, _ := DeriveWithRule(s)
	return mood
}

// DeriveWithRule is Derive that also names the rule that fired, or
// "fallback" when none did.
func DeriveWithRule(s domain.Signals) (domain.Mood, string) {
	for _, r := range Rules {
		if r.Match(s) {
			return r.Mood, r.Name
		}
	}
	return domain.MoodCalm, "fallback"
}

func openTasks(s domain.Signals) float64 {
	return or(s.TotalTasks, defaultCount) - or(s.TasksCompleted, defaultCount)
}

func isStressed(s domain.Signals) bool {
	return or(s.BudgetUsed, defaultBudgetUsed) > stressBudgetUsedAbove ||
		or(s.OverdueBills, defaultCount) > stressOverdueBills ||
		openTasks(s) >= stressOpenTasks ||
		or(s.EventsToday, defaultCount) >= stressEventsToday
}

func isTired(s domain.Signals) bool {
	return or(s.SleepHours, defaultTiredSleep) < tiredSleepBelow
}

func isEnergetic(s domain.Signals) bool {
	return or(s.SleepHours, defaultPositiveSleep) >= energeticSleep &&
		or(s.WaterCups, defaultCount) >= energeticWater &&
		or(s.Steps, defaultCount) >= energeticSteps
}

func isHappy(s domain.Signals) bool {
	if or(s.WellnessScore, wellnessDefault(s)) >= happyWellness {
		return true
	}
	return or(s.SleepHours, defaultPositiveSleep) >= happySleep &&
		or(s.WaterCups, defaultCount) >= happyWater
}

// wellnessDefault is the score assumed when none was reported. Once any
// health reading is present the raw readings decide on their own.
func wellnessDefault(s domain.Signals) float64 {
	if s.SleepHours != nil || s.WaterCups != nil || s.Steps != nil {
		return 0
	}
	return defaultWellnessScore
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
