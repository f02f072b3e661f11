package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

func TestRegistration_NoConflicts(t *testing.T) {
	reg := NewRegistry()

	require.NotPanics(t, func() {
		NewHTTPMetrics(reg)
		NewRedisMetrics(reg)
		NewMoodMetrics(reg)
		NewStoreMetrics(reg)
		NewDBMetrics(reg)
	})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMoodMetrics(t *testing.T) {
	m := NewMoodMetrics(prometheus.NewRegistry())

	m.MoodDerived(domain.MoodHappy, "generally-good")
	m.MoodDerived(domain.MoodHappy, "generally-good")
	m.MoodDerived(domain.MoodCalm, "fallback")
	m.MoodOverridden(domain.MoodTired)
	m.RemoteAdopted(domain.MoodKey)
	m.PersistFailed(domain.SignalsKey)
	m.HydrateReset(domain.MoodKey)
	m.SessionsActive(3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Derivations.WithLabelValues("happy", "generally-good")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Derivations.WithLabelValues("calm", "fallback")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Overrides.WithLabelValues("tired")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RemoteAdoptions.WithLabelValues(domain.MoodKey)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PersistFailures.WithLabelValues(domain.SignalsKey)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HydrateResets.WithLabelValues(domain.MoodKey)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveSessions), 0)

	m.SessionsActive(0)
	assert.Zero(t, testutil.ToFloat64(m.ActiveSessions))
}

func TestStoreMetrics(t *testing.T) {
	m := NewStoreMetrics(prometheus.NewRegistry())

	m.Received("redis")
	m.Received("redis")
	m.Dropped("file")

	assert.InDelta(t, 2, testutil.ToFloat64(m.ChangesReceived.WithLabelValues("redis")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ChangesDropped.WithLabelValues("file")), 0)

	var nilMetrics *StoreMetrics
	assert.NotPanics(t, func() {
		nilMetrics.Received("redis")
		nilMetrics.Dropped("redis")
	})
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/users/:userID/mood", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.DELETE("/api/users/:userID/session", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/version", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	requests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/users/a/mood", http.StatusOK},
		{http.MethodGet, "/api/users/b/mood", http.StatusOK},
		{http.MethodDelete, "/api/users/a/session", http.StatusNotFound},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/wp-login.php", http.StatusNotFound},
		{http.MethodGet, "/.env", http.StatusNotFound},
	}
	for _, r := range requests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		require.Equal(t, r.want, rec.Code, r.path)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/users/:userID/mood", "2xx")), 0,
		"requests are labelled by route, not by user")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("DELETE", "/api/users/:userID/session", "4xx")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("GET", unmatchedRoute, "4xx")), 0,
		"unknown paths share one series")
	assert.Equal(t, 3, testutil.CollectAndCount(m.Requests), "probes and version are not counted")
	assert.Zero(t, testutil.ToFloat64(m.InFlight))
}

func TestHTTPMetrics_HandlerErrorIsServerError(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry(), WithSkippedPrefixes())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/health/live", func(c echo.Context) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/health/live", "5xx")), 0,
		"nothing is skipped once the prefixes are cleared")
}

func TestDBMetrics(t *testing.T) {
	m := NewDBMetrics(prometheus.NewRegistry())

	m.QueryDuration.WithLabelValues("SELECT").Observe(0.01)
	m.ErrorsTotal.WithLabelValues("INSERT").Inc()

	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryDuration))
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("INSERT")), 0)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	NewMoodMetrics(reg).SessionsActive(7)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "twin_mood_active_sessions 7")
}
