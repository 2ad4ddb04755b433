package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Reconciled     *prometheus.CounterVec
	Unpriced       prometheus.Gauge
	ReconcileRuns  *prometheus.CounterVec
	ReconcileDelay prometheus.Histogram
}

// New registers the collectors on a fresh registry together with the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dance_ops",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dance_ops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dance_ops",
			Name:      "students_reconciled_total",
			Help:      "Student views recomputed, by outcome.",
		}, []string{"outcome"}),
		Unpriced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dance_ops",
			Name:      "students_unpriced",
			Help:      "Students whose schedule has no price table entry as of the last batch run.",
		}),
		ReconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dance_ops",
			Name:      "reconcile_runs_total",
			Help:      "Batch reconciliation runs by trigger and result.",
		}, []string{"trigger", "result"}),
		ReconcileDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dance_ops",
			Name:      "reconcile_run_duration_seconds",
			Help:      "Duration of batch reconciliation runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Reconciled,
		m.Unpriced,
		m.ReconcileRuns,
		m.ReconcileDelay,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
