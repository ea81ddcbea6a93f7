package swap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects settlement telemetry in its own registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	settlements    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	cancellations  prometheus.Counter
	authorizations *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace (default "swap").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "swap"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Orders settled, by entry point",
		},
		[]string{"path"},
	)
	m.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Orders rejected, by entry point and reason code",
		},
		[]string{"path", "reason"},
	)
	m.cancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Nonces newly cancelled",
		},
	)
	m.authorizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorizations_total",
			Help:      "Authorization grants changed, by action",
		},
		[]string{"action"},
	)

	m.registry.MustRegister(m.settlements, m.rejections, m.cancellations, m.authorizations)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) settled(path Path) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(string(path)).Inc()
}

func (m *Metrics) rejected(path Path, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(path), reason).Inc()
}

func (m *Metrics) cancelled(n int) {
	if m == nil || n == 0 {
		return
	}
	m.cancellations.Add(float64(n))
}

func (m *Metrics) authorization(action string) {
	if m == nil {
		return
	}
	m.authorizations.WithLabelValues(action).Inc()
}
