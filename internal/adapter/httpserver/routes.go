package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMiddleware != nil {
		s.echo.Use(s.httpMiddleware)
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	s.echo.Use(middleware.BodyLimit("64K"))

	s.registerHealthRoutes()
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
	s.registerMoodRoutes()
}

func (s *Server) registerMoodRoutes() {
	writeLimit := newRateLimiter(s.config.WriteRateLimit, s.config.WriteRateBurst)

	g := s.echo.Group("/api/users/:userID", requireUserID)

	g.GET("/mood", s.handleGetMood)
	g.PUT("/mood", s.handleSetMood, writeLimit)
	g.GET("/mood/history", s.handleHistory)

	g.GET("/signals", s.handleGetSignals)
	g.PATCH("/signals", s.handleMergeSignals, writeLimit)
	g.POST("/signals/budget", s.handleBudgetSignals, writeLimit)
	g.POST("/signals/bills", s.handleBillsSignals, writeLimit)
	g.POST("/signals/calendar", s.handleCalendarSignals, writeLimit)
	g.POST("/signals/health", s.handleHealthSignals, writeLimit)
	g.POST("/signals/tasks", s.handleTasksSignals, writeLimit)

	g.DELETE("/session", s.handleEndSession)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
