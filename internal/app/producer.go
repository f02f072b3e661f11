package app

import (
	"time"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

// Producers turn the figures a feature view already has into the partial
// signal set it pushes. None of them range-check their inputs.

// BudgetSignals reports spending as a percentage of the budget; zero when no
// budget is set.
func BudgetSignals(totalSpent, totalBudget float64) domain.Signals {
	used := 0.0
	if totalBudget > 0 {
		used = totalSpent / totalBudget * 100
	}
	return domain.Signals{BudgetUsed: domain.Num(used)}
}

// BillsSignals counts pending bills and pending settlements as overdue.
func BillsSignals(pendingBills, pendingSettlements int) domain.Signals {
	return domain.Signals{OverdueBills: domain.Num(float64(pendingBills + pendingSettlements))}
}

// CalendarSignals counts the events starting on day's calendar date, in
// day's location.
func CalendarSignals(eventStarts []time.Time, day time.Time) domain.Signals {
	y, m, d := day.Date()
	count := 0
	for _, start := range eventStarts {
		ey, em, ed := start.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			count++
		}
	}
	return domain.Signals{EventsToday: domain.Num(float64(count))}
}

// HealthReading is one day of health figures. WellnessScore is optional.
type HealthReading struct {
	SleepHours    float64
	WaterCups     int
	Steps         int
	WellnessScore *float64
}

func HealthSignals(r HealthReading) domain.Signals {
	s := domain.Signals{
		SleepHours: domain.Num(r.SleepHours),
		WaterCups:  domain.Num(float64(r.WaterCups)),
		Steps:      domain.Num(float64(r.Steps)),
	}
	if r.WellnessScore != nil {
		s.WellnessScore = domain.Num(*r.WellnessScore)
	}
	return s
}

func ProductivitySignals(tasksCompleted, totalTasks int) domain.Signals {
	return domain.Signals{
		TasksCompleted: domain.Num(float64(tasksCompleted)),
		TotalTasks:     domain.Num(float64(totalTasks)),
	}
}
