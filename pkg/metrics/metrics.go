// Package metrics provides Prometheus collectors for the retrieval pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors tracking retrieval outcomes. Collectors are
// registered on a private registry so repeated construction (e.g. in tests)
// never trips duplicate registration.
type Metrics struct {
	reg *prometheus.Registry

	retrievalsTotal *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
}

// New creates and registers the retrieval metrics.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
	}

	m.retrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafetch_retrievals_total",
			Help: "Total retrievals by mode and status.",
		},
		[]string{"mode", "status"},
	)

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediafetch_retrieval_duration_seconds",
			Help:    "Retrieval duration by mode.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	m.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediafetch_retrievals_in_flight",
			Help: "Retrievals currently executing by mode.",
		},
		[]string{"mode"},
	)

	m.reg.MustRegister(
		m.retrievalsTotal,
		m.durationSeconds,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveRetrieval records a finished retrieval.
func (m *Metrics) ObserveRetrieval(mode, status string, d time.Duration) {
	m.retrievalsTotal.WithLabelValues(mode, status).Inc()
	m.durationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// TrackInFlight marks a retrieval as executing and returns the matching
// decrement, intended for use in a defer.
func (m *Metrics) TrackInFlight(mode string) func() {
	g := m.inFlight.WithLabelValues(mode)
	g.Inc()
	return g.Dec
}
