// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "batting"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration  *prometheus.HistogramVec
	analyses      *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	scanFailures  prometheus.Counter
	candidates    *prometheus.GaugeVec
	invalidations *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analytics requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "League-wide regression scan duration.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		scanFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_failures_total",
			Help:      "Scheduled scans aborted by a store fault.",
		}),
		candidates: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_candidates",
			Help:      "Strong candidates found by the latest scan.",
		}, []string{"side"}),
		invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Stats-loaded notifications handled, by scope.",
		}, []string{"scope"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveAnalysis counts one analytics call. outcome is ok, insufficient or error.
func (m *Metrics) ObserveAnalysis(kind, outcome string) {
	m.analyses.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveScan(d time.Duration, buys, sells int) {
	m.scanDuration.Observe(d.Seconds())
	m.candidates.WithLabelValues("buy").Set(float64(buys))
	m.candidates.WithLabelValues("sell").Set(float64(sells))
}

func (m *Metrics) ScanFailed() {
	m.scanFailures.Inc()
}

// ObserveInvalidation counts a handled notification. scope is "season" or "all".
func (m *Metrics) ObserveInvalidation(scope string) {
	m.invalidations.WithLabelValues(scope).Inc()
}
