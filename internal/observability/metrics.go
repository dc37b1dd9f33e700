package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	evaluationOutcomes   *prometheus.CounterVec
	sessionsActive       prometheus.Gauge
	sessionsFinalized    *prometheus.CounterVec
	integrityViolations  *prometheus.CounterVec
	persistenceFailures  *prometheus.CounterVec
	progressCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_api_requests_total",
			Help: "Total number of contest API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_api_latency_seconds",
			Help:    "Latency distribution for contest API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_api_errors_total",
			Help: "Total number of error responses returned by contest endpoints.",
		}, []string{"method", "route", "status"})

		evaluationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_evaluation_cases_total",
			Help: "Test case evaluations by mode and outcome.",
		}, []string{"mode", "outcome"})

		sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_sessions_active",
			Help: "Contest sessions currently running.",
		})

		sessionsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_sessions_finalized_total",
			Help: "Finalized contest sessions by reason.",
		}, []string{"reason"})

		integrityViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_integrity_events_total",
			Help: "Fullscreen integrity events by kind.",
		}, []string{"kind"})

		persistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_persistence_failures_total",
			Help: "Failed durable writes by operation.",
		}, []string{"operation"})

		progressCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_progress_cache_lookups_total",
			Help: "Practice progress cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationOutcomes,
			sessionsActive,
			sessionsFinalized,
			integrityViolations,
			persistenceFailures,
			progressCacheLookups,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// EvaluationOutcomes exposes the per-case evaluation counter.
func EvaluationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationOutcomes
}

// SessionsActive exposes the running sessions gauge.
func SessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return sessionsActive
}

// SessionsFinalized exposes the finalized sessions counter.
func SessionsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsFinalized
}

// IntegrityEvents exposes the fullscreen integrity counter.
func IntegrityEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return integrityViolations
}

// PersistenceFailures exposes the failed write counter.
func PersistenceFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return persistenceFailures
}

// ProgressCacheLookups exposes the progress cache hit/miss counter.
func ProgressCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return progressCacheLookups
}
