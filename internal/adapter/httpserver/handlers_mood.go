package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Eshwar187/twin-clone-01/internal/app"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
	apperrors "github.com/Eshwar187/twin-clone-01/internal/platform/errors"
)

type moodResponse struct {
	Mood    domain.Mood    `json:"mood"`
	Emoji   string         `json:"emoji"`
	Signals domain.Signals `json:"signals"`
}

func newMoodResponse(s app.Snapshot) moodResponse {
	return moodResponse{Mood: s.Mood, Emoji: s.Mood.Emoji(), Signals: s.Signals}
}

type setMoodRequest struct {
	Mood string `json:"mood"`
}

type historyEntry struct {
	Mood   domain.Mood       `json:"mood"`
	Emoji  string            `json:"emoji"`
	Source domain.MoodSource `json:"source"`
	At     time.Time         `json:"at"`
}

type historyResponse struct {
	Entries      []historyEntry      `json:"entries"`
	Distribution map[domain.Mood]int `json:"distribution"`
	Days         int                 `json:"days"`
}

func (s *Server) handleGetMood(c echo.Context) error {
	userID := userIDFrom(c)

	snap, err := s.app.GetMood(c.Request().Context(), userID)
	if err != nil {
		return fmt.Errorf("get mood: %w", err)
	}
	return writeJSON(c, http.StatusOK, newMoodResponse(snap))
}

func (s *Server) handleSetMood(c echo.Context) error {
	userID := userIDFrom(c)

	var req setMoodRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body").WithCause(err)
	}
	mood, err := domain.ParseMood(req.Mood)
	if err != nil {
		return apperrors.ValidationError("unknown mood").WithField("mood", req.Mood).WithCause(err)
	}

	snap, err := s.app.SetMood(c.Request().Context(), userID, mood)
	if err != nil {
		return fmt.Errorf("set mood: %w", err)
	}
	return writeJSON(c, http.StatusOK, newMoodResponse(snap))
}

func (s *Server) handleHistory(c echo.Context) error {
	userID := userIDFrom(c)

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	days, err := queryInt(c, "days")
	if err != nil {
		return err
	}

	report, err := s.app.History(c.Request().Context(), userID, limit, days)
	if err != nil {
		return apperrors.UnavailableError("mood history unavailable", err).WithField("user_id", userID.String())
	}

	resp := historyResponse{
		Entries:      make([]historyEntry, 0, len(report.Entries)),
		Distribution: report.Distribution,
		Days:         report.Days,
	}
	for _, e := range report.Entries {
		resp.Entries = append(resp.Entries, historyEntry{Mood: e.Mood, Emoji: e.Mood.Emoji(), Source: e.Source, At: e.At})
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleEndSession(c echo.Context) error {
	userID := userIDFrom(c)

	if err := s.app.EndSession(c.Request().Context(), userID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// queryInt reads an optional non-negative integer query parameter; absent
// means 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationError("query parameter must be a non-negative integer").WithField("param", name)
	}
	return n, nil
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
