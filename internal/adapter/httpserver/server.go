package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Eshwar187/twin-clone-01/internal/app"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
	"github.com/Eshwar187/twin-clone-01/internal/platform/config"
)

type appService interface {
	GetMood(ctx context.Context, userID uuid.UUID) (app.Snapshot, error)
	MergeSignals(ctx context.Context, userID uuid.UUID, partial domain.Signals) (app.Snapshot, error)
	SetMood(ctx context.Context, userID uuid.UUID, mood domain.Mood) (app.Snapshot, error)
	History(ctx context.Context, userID uuid.UUID, limit, days int) (app.HistoryReport, error)
	EndSession(ctx context.Context, userID uuid.UUID) error
	ActiveSessions() int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	metricsHandler http.Handler
	httpMiddleware echo.MiddlewareFunc
	healthChecks   []HealthCheck
	startTime      time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics serves h on /metrics and records request metrics with mw.
func WithMetrics(h http.Handler, mw echo.MiddlewareFunc) Option {
	return func(s *Server) {
		s.metricsHandler = h
		s.httpMiddleware = mw
	}
}

func WithHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) { s.healthChecks = append(s.healthChecks, checks...) }
}

func NewServer(cfg *config.Config, app appService, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
