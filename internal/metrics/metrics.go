package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	importLines *prometheus.CounterVec
	reverts     *prometheus.CounterVec
	pending     *prometheus.GaugeVec
}

// New registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		importLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kardex_import_lines_total",
				Help: "Document lines processed by import, by document kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		reverts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kardex_reverts_total",
				Help: "Revert attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		pending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kardex_pending_entries",
				Help: "Entries waiting in each pending reconciliation queue",
			},
			[]string{"queue"},
		),
	}
	m.registry.MustRegister(m.importLines, m.reverts, m.pending)
	return m
}

// Line counts one processed document line.
func (m *Metrics) Line(kind, outcome string) {
	if m == nil {
		return
	}
	m.importLines.WithLabelValues(kind, outcome).Inc()
}

// Revert counts one revert attempt.
func (m *Metrics) Revert(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "blocked"
	}
	m.reverts.WithLabelValues(kind, result).Inc()
}

// Pending sets the size of a pending queue.
func (m *Metrics) Pending(queue string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(queue).Set(float64(n))
}

// Registry exposes the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
