// Package metrics provides Prometheus metrics for the podium scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // immutable defaults

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Recompute controller
	passes             *prometheus.CounterVec
	passDuration       *prometheus.HistogramVec
	participantsScored prometheus.Histogram
	rowsWritten        prometheus.Counter
	rowWriteErrors     prometheus.Counter
	rollbacks          *prometheus.CounterVec
	fallbackRows       prometheus.Counter

	// Leaderboard reads
	leaderboardReads   prometheus.Counter
	leaderboardEntries prometheus.Gauge

	// Repository
	repoLatency *prometheus.HistogramVec
	repoErrors  *prometheus.CounterVec

	// Worker pool
	workerTaskLatency prometheus.Histogram
	workerTaskErrors  prometheus.Counter
	workerCount       prometheus.Gauge
	inFlightEvents    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	httpThrottled       *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(collectors.NewGoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "scoring",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.passes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passes_total",
		Help:      "Finish/reopen passes by operation and outcome",
	}, []string{"op", "outcome"})

	m.passDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pass_duration_milliseconds",
		Help:      "Duration of finish/reopen passes in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.participantsScored = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants_scored",
		Help:      "Number of participants scored per successful finish",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	m.rowsWritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_rows_written_total",
		Help:      "Score rows upserted",
	})

	m.rowWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_row_write_errors_total",
		Help:      "Score row upserts that failed",
	})

	m.rollbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rollbacks_total",
		Help:      "Compensating restores after a failed pass, by result",
	}, []string{"result"})

	m.fallbackRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_rows_total",
		Help:      "Score rows computed from season fallback picks",
	})

	m.leaderboardReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_reads_total",
		Help:      "Leaderboard aggregations served",
	})

	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_entries",
		Help:      "Entries in the most recent leaderboard aggregation",
	})

	m.repoLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_op_latency_milliseconds",
		Help:      "Latency of store operations by store and operation",
		Buckets:   m.histogramBuckets,
	}, []string{"store", "op"})

	m.repoErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_errors_total",
		Help:      "Store operations that returned an error",
	}, []string{"store", "op"})

	m.workerTaskLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_task_latency_milliseconds",
		Help:      "Latency of individual worker pool tasks",
		Buckets:   m.histogramBuckets,
	})

	m.workerTaskErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_task_errors_total",
		Help:      "Worker pool tasks that returned an error",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Configured worker pool size",
	})

	m.inFlightEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "in_flight_events",
		Help:      "Events with a finish or reopen pass in progress",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP responses with status >= 400 by endpoint and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.httpThrottled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_throttled_total",
		Help:      "Requests rejected by the admin rate limiter",
	}, []string{"endpoint"})
}

// RecordPass counts a finished finish/reopen pass. Outcome is "ok" or an error kind.
func RecordPass(op, outcome string, durationMs float64) {
	globalManager.passes.WithLabelValues(op, outcome).Inc()
	globalManager.passDuration.WithLabelValues(op).Observe(durationMs)
}

// RecordParticipantsScored observes the participant count of a successful finish.
func RecordParticipantsScored(n int) {
	globalManager.participantsScored.Observe(float64(n))
}

// RecordRowWritten increments the upserted rows counter.
func RecordRowWritten() {
	globalManager.rowsWritten.Inc()
}

// RecordRowWriteError increments the failed upserts counter.
func RecordRowWriteError() {
	globalManager.rowWriteErrors.Inc()
}

// RecordRollback counts a compensating restore; result is "ok" or "failed".
func RecordRollback(result string) {
	globalManager.rollbacks.WithLabelValues(result).Inc()
}

// RecordFallbackRow increments the fallback-sourced rows counter.
func RecordFallbackRow() {
	globalManager.fallbackRows.Inc()
}

// RecordLeaderboardRead records a leaderboard aggregation and its size.
func RecordLeaderboardRead(entries int) {
	globalManager.leaderboardReads.Inc()
	globalManager.leaderboardEntries.Set(float64(entries))
}

// RecordRepositoryOp records a store operation latency and whether it failed.
func RecordRepositoryOp(store, op string, latencyMs float64, failed bool) {
	globalManager.repoLatency.WithLabelValues(store, op).Observe(latencyMs)
	if failed {
		globalManager.repoErrors.WithLabelValues(store, op).Inc()
	}
}

// RecordWorkerTask records a worker pool task latency and whether it failed.
func RecordWorkerTask(latencyMs float64, failed bool) {
	globalManager.workerTaskLatency.Observe(latencyMs)
	if failed {
		globalManager.workerTaskErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateInFlightEvents sets the number of events currently being processed.
func UpdateInFlightEvents(n int64) {
	globalManager.inFlightEvents.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordHTTPThrottled records a request rejected by the rate limiter.
func RecordHTTPThrottled(endpoint string) {
	globalManager.httpThrottled.WithLabelValues(endpoint).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
