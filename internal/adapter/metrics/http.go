package metrics

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no registered route, so scanners
// probing random paths add one series instead of one per path.
const unmatchedRoute = "unmatched"

// HTTPMetrics tracks API traffic. Requests are labelled by route template
// (/api/users/:userID/mood), never by raw path, and by status class.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
	InFlight        prometheus.Gauge

	skip []string
}

type HTTPOption func(*HTTPMetrics)

// WithSkippedPrefixes replaces the route prefixes that are not measured.
func WithSkippedPrefixes(prefixes ...string) HTTPOption {
	return func(m *HTTPMetrics) { m.skip = prefixes }
}

// NewHTTPMetrics registers the API traffic metrics. Scrapes, health probes
// and /version are skipped unless overridden.
func NewHTTPMetrics(reg prometheus.Registerer, opts ...HTTPOption) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests by route.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status class.",
		}, []string{"method", "route", "status_class"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "API requests currently being served.",
		}),
		skip: []string{"/metrics", "/health/", "/version"},
	}
	for _, opt := range opts {
		opt(m)
	}

	reg.MustRegister(m.RequestDuration, m.Requests, m.InFlight)
	return m
}

func (m *HTTPMetrics) skipped(route string) bool {
	for _, prefix := range m.skip {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}

// Middleware measures every request that reaches it. It must run outside
// the error handling middleware: errors Echo renders later (unknown routes,
// wrong methods) are classified from the returned error.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.skipped(c.Path()) {
				return next(c)
			}

			m.InFlight.Inc()
			defer m.InFlight.Dec()
			timer := prometheus.NewTimer(nil)

			err := next(c)

			route, status := classify(c, err)
			method := c.Request().Method
			m.RequestDuration.WithLabelValues(method, route).Observe(timer.ObserveDuration().Seconds())
			m.Requests.WithLabelValues(method, route, statusClass(status)).Inc()
			return err
		}
	}
}

func classify(c echo.Context, err error) (route string, status int) {
	route = c.Path()
	status = c.Response().Status

	var httpErr *echo.HTTPError
	if err != nil && !c.Response().Committed {
		status = http.StatusInternalServerError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}
	}
	if route == "" || strings.HasSuffix(route, "*") ||
		httpErr != nil && (httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed) {
		route = unmatchedRoute
	}
	return route, status
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
