package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics holds Prometheus metrics for change notifications.
type StoreMetrics struct {
	ChangesReceived *prometheus.CounterVec
	ChangesDropped  *prometheus.CounterVec
}

// NewStoreMetrics creates and registers change feed metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		ChangesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "changes_received_total",
			Help:      "Total number of external change notifications delivered, by backend.",
		}, []string{"backend"}),
		ChangesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "changes_dropped_total",
			Help:      "Total number of change notifications ignored as unreadable or undeliverable, by backend.",
		}, []string{"backend"}),
	}

	reg.MustRegister(m.ChangesReceived, m.ChangesDropped)
	return m
}

// Received counts a delivered notification. Safe on a nil receiver.
func (m *StoreMetrics) Received(backend string) {
	if m == nil {
		return
	}
	m.ChangesReceived.WithLabelValues(backend).Inc()
}

// Dropped counts a notification that was unreadable or could not be
// delivered. Safe on a nil receiver.
func (m *StoreMetrics) Dropped(backend string) {
	if m == nil {
		return
	}
	m.ChangesDropped.WithLabelValues(backend).Inc()
}
