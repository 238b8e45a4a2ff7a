// Package metrics provides Prometheus metrics for registrations, verifications and HTTP traffic.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains every collector exported by the service.
type Metrics struct {
	WorkflowOutcomes *prometheus.CounterVec
	MintsTotal       *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	AnalyzerDuration prometheus.Histogram
	AnalyzerErrors   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ActiveWorkflows  prometheus.Gauge
	registry         *prometheus.Registry
}

// New creates the metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

// NewNoop returns metrics bound to a private registry, for tests and tools.
func NewNoop() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) initMetrics() {
	m.WorkflowOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apex_registration_outcomes_total",
		Help: "Registration workflow outcomes by kind (completed, rejected, failed).",
	}, []string{"outcome"})

	m.MintsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apex_certificate_mints_total",
		Help: "Certificates minted, split by on-chain and simulated.",
	}, []string{"mode"})

	m.Verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apex_verifications_total",
		Help: "Verification attempts by method and result.",
	}, []string{"method", "result"})

	m.AnalyzerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apex_analyzer_duration_seconds",
		Help:    "Duration of authenticity analyses in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.AnalyzerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apex_analyzer_errors_total",
		Help: "Total number of failed authenticity analyses.",
	})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apex_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apex_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.ActiveWorkflows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apex_active_registrations",
		Help: "Registration workflows currently held in memory.",
	})
}

func (m *Metrics) RecordOutcome(outcome string) {
	m.WorkflowOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordMint(simulated bool) {
	mode := "onchain"
	if simulated {
		mode = "simulated"
	}
	m.MintsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordVerification(method string, authentic bool) {
	result := "not_authentic"
	if authentic {
		result = "authentic"
	}
	m.Verifications.WithLabelValues(method, result).Inc()
}

// ObserveAnalysis records one analyzer call. durationSeconds is wall time.
func (m *Metrics) ObserveAnalysis(durationSeconds float64, failed bool) {
	m.AnalyzerDuration.Observe(durationSeconds)
	if failed {
		m.AnalyzerErrors.Inc()
	}
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.WorkflowOutcomes.Collect(ch)
	m.MintsTotal.Collect(ch)
	m.Verifications.Collect(ch)
	ch <- m.AnalyzerDuration
	ch <- m.AnalyzerErrors
	m.HTTPRequests.Collect(ch)
	m.HTTPDuration.Collect(ch)
	ch <- m.ActiveWorkflows
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.WorkflowOutcomes.Describe(ch)
	m.MintsTotal.Describe(ch)
	m.Verifications.Describe(ch)
	ch <- m.AnalyzerDuration.Desc()
	ch <- m.AnalyzerErrors.Desc()
	m.HTTPRequests.Describe(ch)
	m.HTTPDuration.Describe(ch)
	ch <- m.ActiveWorkflows.Desc()
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
