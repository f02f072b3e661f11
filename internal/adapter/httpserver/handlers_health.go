package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Eshwar187/twin-clone-01/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, e.g. a Redis ping or a state
// directory stat.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// healthReport describes this process: which state backend it syncs
// through, how many user sessions it holds and how its dependencies answer.
type healthReport struct {
	Status         string        `json:"status"`
	Backend        string        `json:"backend"`
	ActiveSessions int           `json:"active_sessions"`
	UptimeSeconds  float64       `json:"uptime_seconds,omitempty"`
	Checks         []checkResult `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) report(status string) healthReport {
	return healthReport{
		Status:         status,
		Backend:        s.config.StoreBackend,
		ActiveSessions: s.app.ActiveSessions(),
	}
}

// handleStartup runs checks in order and stops at the first failure.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	report := s.report("started")
	for _, hc := range s.healthChecks {
		res := runCheck(ctx, hc)
		report.Checks = append(report.Checks, res)
		if !res.OK {
			report.Status = "starting"
			return writeReport(c, http.StatusServiceUnavailable, report)
		}
	}
	return writeReport(c, http.StatusOK, report)
}

// handleLiveness does not run dependency checks.
func (s *Server) handleLiveness(c echo.Context) error {
	report := s.report("ok")
	report.UptimeSeconds = time.Since(s.startTime).Seconds()
	return writeReport(c, http.StatusOK, report)
}

// handleReadiness runs every check and lists each outcome.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	report := s.report("ready")
	status := http.StatusOK
	for _, hc := range s.healthChecks {
		res := runCheck(ctx, hc)
		report.Checks = append(report.Checks, res)
		if !res.OK {
			report.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	return writeReport(c, status, report)
}

func runCheck(ctx context.Context, hc HealthCheck) checkResult {
	start := time.Now()
	err := hc.Check(ctx)
	res := checkResult{Name: hc.Name, OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func writeReport(c echo.Context, status int, report healthReport) error {
	if err := c.JSON(status, report); err != nil {
		return fmt.Errorf("write health report: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
