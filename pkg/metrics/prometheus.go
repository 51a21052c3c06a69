// Package metrics provides Prometheus metrics for the armpredict service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Upstream collaborators
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Review workflow
	reviewAttempts    prometheus.Counter
	reviewTransitions *prometheus.CounterVec
	reviewStale       prometheus.Counter
	reviewTimeouts    prometheus.Counter
	reviewDuration    *prometheus.HistogramVec
	degradedResults   prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Sessions
	sessionsLive    prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsEvicted *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // singleton metrics manager

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "armpredict",
		subsystem:        "bff",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.upstreamRequests = m.counterVec("upstream_requests_total",
		"Calls to the remote analysis service by endpoint and outcome", "endpoint", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds",
		"Remote analysis service latency in milliseconds", "endpoint")

	m.reviewAttempts = m.counter("review_attempts_total", "AI review attempts started")
	m.reviewTransitions = m.counterVec("review_transitions_total",
		"AI review workflow transitions by target state", "state")
	m.reviewStale = m.counter("review_stale_responses_total",
		"AI review responses discarded because their attempt was superseded")
	m.reviewTimeouts = m.counter("review_timeouts_total", "AI review attempts that timed out while waiting")
	m.reviewDuration = m.histogramVec("review_duration_milliseconds",
		"Time from review start to a terminal state", "outcome")
	m.degradedResults = m.counter("degraded_results_total",
		"Reconciliations that fell back to base probabilities for at least one athlete")

	m.queueSize = m.gauge("queue_size", "Current number of pending review jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of pending review jobs")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of review jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of review jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Review jobs rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Configured number of review workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Review workers currently running a job")
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Review job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerErrors = m.counter("worker_errors_total", "Review jobs that ended in an error")

	m.sessionsLive = m.gauge("sessions_live", "Matchup sessions currently held in memory")
	m.sessionsCreated = m.counter("sessions_created_total", "Matchup sessions created")
	m.sessionsEvicted = m.counterVec("sessions_evicted_total", "Matchup sessions removed by reason", "reason")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordUpstreamRequest counts one call to the remote analysis service.
func RecordUpstreamRequest(endpoint, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordReviewAttempt counts a review dispatch.
func RecordReviewAttempt() { globalManager.reviewAttempts.Inc() }

// RecordReviewTransition counts a workflow transition into state.
func RecordReviewTransition(state string) {
	globalManager.reviewTransitions.WithLabelValues(state).Inc()
}

// RecordReviewStale counts a discarded late response.
func RecordReviewStale() { globalManager.reviewStale.Inc() }

// RecordReviewTimeout counts a review that expired while waiting.
func RecordReviewTimeout() { globalManager.reviewTimeouts.Inc() }

// RecordReviewDuration observes the wall time of a finished review attempt.
func RecordReviewDuration(outcome string, durationMs float64) {
	globalManager.reviewDuration.WithLabelValues(outcome).Observe(durationMs)
}

// RecordDegradedResult counts a reconciliation that could not match an athlete.
func RecordDegradedResult() { globalManager.degradedResults.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) { globalManager.workerActiveCount.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateSessionsLive sets the number of live sessions.
func UpdateSessionsLive(count int) { globalManager.sessionsLive.Set(float64(count)) }

// RecordSessionCreated increments the session creation counter.
func RecordSessionCreated() { globalManager.sessionsCreated.Inc() }

// RecordSessionEvicted counts a session removal. Reasons: expired, capacity, deleted.
func RecordSessionEvicted(reason string) {
	globalManager.sessionsEvicted.WithLabelValues(reason).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
