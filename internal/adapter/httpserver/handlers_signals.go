package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Eshwar187/twin-clone-01/internal/app"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
	apperrors "github.com/Eshwar187/twin-clone-01/internal/platform/errors"
)

const dayLayout = "2006-01-02"

type budgetRequest struct {
	TotalSpent  float64 `json:"totalSpent"`
	TotalBudget float64 `json:"totalBudget"`
}

type billsRequest struct {
	PendingBills       int `json:"pendingBills"`
	PendingSettlements int `json:"pendingSettlements"`
}

type calendarRequest struct {
	Day      string      `json:"day"`
	TimeZone string      `json:"timeZone"`
	Events   []time.Time `json:"events"`
}

type healthRequest struct {
	SleepHours    float64  `json:"sleepHours"`
	WaterCups     int      `json:"waterCups"`
	Steps         int      `json:"steps"`
	WellnessScore *float64 `json:"wellnessScore"`
}

type tasksRequest struct {
	TasksCompleted int `json:"tasksCompleted"`
	TotalTasks     int `json:"totalTasks"`
}

func (s *Server) handleGetSignals(c echo.Context) error {
	snap, err := s.app.GetMood(c.Request().Context(), userIDFrom(c))
	if err != nil {
		return fmt.Errorf("get signals: %w", err)
	}
	return writeJSON(c, http.StatusOK, snap.Signals)
}

// handleMergeSignals accepts any flat JSON object. Recognized keys must be
// numbers or null; other keys are stored as they are.
func (s *Server) handleMergeSignals(c echo.Context) error {
	var partial domain.Signals
	if err := json.NewDecoder(c.Request().Body).Decode(&partial); err != nil {
		return apperrors.ValidationError("signals must be a flat JSON object of numbers").WithCause(err)
	}
	return s.merge(c, partial)
}

func (s *Server) handleBudgetSignals(c echo.Context) error {
	var req budgetRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid budget payload").WithCause(err)
	}
	return s.merge(c, app.BudgetSignals(req.TotalSpent, req.TotalBudget))
}

func (s *Server) handleBillsSignals(c echo.Context) error {
	var req billsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid bills payload").WithCause(err)
	}
	return s.merge(c, app.BillsSignals(req.PendingBills, req.PendingSettlements))
}

func (s *Server) handleCalendarSignals(c echo.Context) error {
	var req calendarRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid calendar payload").WithCause(err)
	}

	loc := time.UTC
	if req.TimeZone != "" {
		l, err := time.LoadLocation(req.TimeZone)
		if err != nil {
			return apperrors.ValidationError("unknown time zone").WithField("timeZone", req.TimeZone)
		}
		loc = l
	}
	day, err := time.ParseInLocation(dayLayout, req.Day, loc)
	if err != nil {
		return apperrors.ValidationError("day must be formatted as YYYY-MM-DD").WithField("day", req.Day)
	}

	return s.merge(c, app.CalendarSignals(req.Events, day))
}

func (s *Server) handleHealthSignals(c echo.Context) error {
	var req healthRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid health payload").WithCause(err)
	}
	return s.merge(c, app.HealthSignals(app.HealthReading{
		SleepHours:    req.SleepHours,
		WaterCups:     req.WaterCups,
		Steps:         req.Steps,
		WellnessScore: req.WellnessScore,
	}))
}

func (s *Server) handleTasksSignals(c echo.Context) error {
	var req tasksRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid tasks payload").WithCause(err)
	}
	return s.merge(c, app.ProductivitySignals(req.TasksCompleted, req.TotalTasks))
}

func (s *Server) merge(c echo.Context, partial domain.Signals) error {
	snap, err := s.app.MergeSignals(c.Request().Context(), userIDFrom(c), partial)
	if err != nil {
		return fmt.Errorf("merge signals: %w", err)
	}
	return writeJSON(c, http.StatusOK, newMoodResponse(snap))
}
