package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

// MoodMetrics holds Prometheus metrics for the mood engine. It implements
// app.Metrics.
type MoodMetrics struct {
	Derivations     *prometheus.CounterVec
	Overrides       *prometheus.CounterVec
	RemoteAdoptions *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	HydrateResets   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
}

// NewMoodMetrics creates and registers mood engine metrics on the given registry.
func NewMoodMetrics(reg prometheus.Registerer) *MoodMetrics {
	m := &MoodMetrics{
		Derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "derivations_total",
			Help:      "Total number of mood derivations, by resulting mood and rule.",
		}, []string{"mood", "rule"}),
		Overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "overrides_total",
			Help:      "Total number of direct mood overrides, by mood.",
		}, []string{"mood"}),
		RemoteAdoptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "remote_adoptions_total",
			Help:      "Total number of values adopted from other contexts, by key.",
		}, []string{"key"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "persist_failures_total",
			Help:      "Total number of swallowed store write failures, by key.",
		}, []string{"key"}),
		HydrateResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "hydrate_resets_total",
			Help:      "Total number of persisted entries reset to defaults on load, by key.",
		}, []string{"key"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mood",
			Name:      "active_sessions",
			Help:      "Number of user sessions open in this process.",
		}),
	}

	reg.MustRegister(m.Derivations, m.Overrides, m.RemoteAdoptions, m.PersistFailures, m.HydrateResets, m.ActiveSessions)
	return m
}

func (m *MoodMetrics) MoodDerived(mood domain.Mood, rule string) {
	m.Derivations.WithLabelValues(string(mood), rule).Inc()
}

func (m *MoodMetrics) MoodOverridden(mood domain.Mood) {
	m.Overrides.WithLabelValues(string(mood)).Inc()
}

func (m *MoodMetrics) RemoteAdopted(key string) {
	m.RemoteAdoptions.WithLabelValues(key).Inc()
}

func (m *MoodMetrics) PersistFailed(key string) {
	m.PersistFailures.WithLabelValues(key).Inc()
}

func (m *MoodMetrics) HydrateReset(key string) {
	m.HydrateResets.WithLabelValues(key).Inc()
}

func (m *MoodMetrics) SessionsActive(n int) {
	m.ActiveSessions.Set(float64(n))
}
