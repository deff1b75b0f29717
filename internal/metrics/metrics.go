package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine's Prometheus collectors on a private registry,
// so parallel tests never fight over the global one.
type Metrics struct {
	registry *prometheus.Registry

	NavigationRequests *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	ManifestParse      prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.NavigationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scormseq_navigation_requests_total",
			Help: "Navigation requests processed, by request type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	m.ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scormseq_active_sessions",
			Help: "Live sequencing sessions currently held in memory.",
		},
	)
	m.ManifestParse = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scormseq_manifest_parse_seconds",
			Help:    "Duration of manifest parsing at course registration.",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.registry.MustRegister(
		m.NavigationRequests,
		m.ActiveSessions,
		m.ManifestParse,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveNavigation records one processed navigation request.
func (m *Metrics) ObserveNavigation(requestType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.NavigationRequests.WithLabelValues(requestType, outcome).Inc()
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
