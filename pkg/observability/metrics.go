// Package observability holds the Prometheus metrics of the extraction pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statement_extractor"

// Metrics groups the collectors registered on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsProcessed *prometheus.CounterVec
	RowsExtracted      prometheus.Counter
	EmptyDocuments     prometheus.Counter
	RunDuration        prometheus.Histogram
	RunFailures        *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics registers all collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		DocumentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents read by extraction runs, by outcome.",
		}, []string{"outcome"}),
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Payment rows written to consolidated datasets.",
		}),
		EmptyDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_documents_total",
			Help:      "Documents that contributed no payment rows.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of extraction runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Extraction runs that ended in an error, by reason.",
		}, []string{"reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DocumentsProcessed,
		m.RowsExtracted,
		m.EmptyDocuments,
		m.RunDuration,
		m.RunFailures,
		m.HTTPRequests,
	)

	return m
}

// Registry exposes the registry for tests and custom gatherers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a run duration. Safe on a nil receiver so callers can run
// without metrics.
func (m *Metrics) ObserveRun(start time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(time.Since(start).Seconds())
}

// Document records one processed document.
func (m *Metrics) Document(outcome string, rows int) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(outcome).Inc()
	if rows == 0 {
		m.EmptyDocuments.Inc()
		return
	}
	m.RowsExtracted.Add(float64(rows))
}

// Failure records a failed run.
func (m *Metrics) Failure(reason string) {
	if m == nil {
		return
	}
	m.RunFailures.WithLabelValues(reason).Inc()
}

// Request records one HTTP response.
func (m *Metrics) Request(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
