// Package metrics provides Prometheus metrics for the turn latency service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Turn latency metrics
	metricLatency   *prometheus.HistogramVec
	turnLatency     prometheus.Histogram
	turnsCompleted  prometheus.Counter
	slotOverwrites  *prometheus.CounterVec
	sessionVerdicts *prometheus.CounterVec

	// Ingestion metrics
	eventsReceived *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	ingestFailures *prometheus.CounterVec

	// Session metrics
	sessionsActive prometheus.Gauge
	sessionsClosed prometheus.Counter
	reportsStored  prometheus.Gauge

	// Queue metrics
	queueCapacity          *prometheus.GaugeVec
	queueSize              *prometheus.GaugeVec
	queueUtilization       *prometheus.GaugeVec
	queueEnqueued          *prometheus.CounterVec
	queueDequeued          *prometheus.CounterVec
	queueEnqueueErrors     *prometheus.CounterVec
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	laneCount               prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "turnlat",
		subsystem:        "agent",
		latencyBuckets:   prometheus.ExponentialBuckets(20, 1.6, 12),
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.metricLatency = auto.NewHistogramVec(
		m.histogramOpts("metric_latency_milliseconds", "Per-kind latency (eou, llm_ttft, tts_ttfb) in milliseconds", m.latencyBuckets),
		[]string{"kind"},
	)
	m.turnLatency = auto.NewHistogram(
		m.histogramOpts("turn_latency_milliseconds", "End-to-end turn latency (eou + llm_ttft + tts_ttfb) in milliseconds", m.latencyBuckets),
	)
	m.turnsCompleted = auto.NewCounter(m.counterOpts("turns_completed_total", "Total number of completed conversation turns"))
	m.slotOverwrites = auto.NewCounterVec(
		m.counterOpts("pending_slot_overwrites_total", "Metrics that replaced an earlier value of the same kind within one pending turn"),
		[]string{"kind"},
	)
	m.sessionVerdicts = auto.NewCounterVec(
		m.counterOpts("session_verdicts_total", "Closed sessions by latency verdict"),
		[]string{"verdict"},
	)

	m.eventsReceived = auto.NewCounterVec(
		m.counterOpts("events_received_total", "Metric events accepted for recording by kind"),
		[]string{"kind"},
	)
	m.eventsDropped = auto.NewCounterVec(
		m.counterOpts("events_dropped_total", "Metric events dropped before recording by reason"),
		[]string{"reason"},
	)
	m.ingestFailures = auto.NewCounterVec(
		m.counterOpts("ingest_failures_total", "Failures suppressed by the fail-open ingest boundary"),
		[]string{"op"},
	)

	m.sessionsActive = auto.NewGauge(m.gaugeOpts("sessions_active", "Number of open sessions"))
	m.sessionsClosed = auto.NewCounter(m.counterOpts("sessions_closed_total", "Total number of closed sessions"))
	m.reportsStored = auto.NewGauge(m.gaugeOpts("reports_stored", "Number of closed-session reports retained in memory"))

	m.queueCapacity = auto.NewGaugeVec(m.gaugeOpts("queue_capacity", "Queue capacity"), []string{"queue"})
	m.queueSize = auto.NewGaugeVec(m.gaugeOpts("queue_size", "Current queue length (backlog indicator)"), []string{"queue"})
	m.queueUtilization = auto.NewGaugeVec(m.gaugeOpts("queue_utilization_ratio", "Queue length / capacity"), []string{"queue"})
	m.queueEnqueued = auto.NewCounterVec(m.counterOpts("queue_enqueued_total", "Items enqueued"), []string{"queue"})
	m.queueDequeued = auto.NewCounterVec(m.counterOpts("queue_dequeued_total", "Items dequeued"), []string{"queue"})
	m.queueEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Rejected enqueues by reason"),
		[]string{"queue", "reason"},
	)
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", m.histogramBuckets),
	)

	m.laneCount = auto.NewGauge(m.gaugeOpts("dispatcher_lanes", "Number of dispatcher lanes"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time to record one event in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Errors returned while recording events"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorsByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordMetricLatency observes one EOU/TTFT/TTFB value.
func RecordMetricLatency(kind string, ms float64) {
	globalManager.metricLatency.WithLabelValues(kind).Observe(ms)
}

// RecordTurnCompleted counts a completed turn and observes its total latency.
func RecordTurnCompleted(totalMs float64) {
	globalManager.turnsCompleted.Inc()
	globalManager.turnLatency.Observe(totalMs)
}

// RecordSlotOverwrite counts a pending slot replaced before its turn completed.
func RecordSlotOverwrite(kind string) {
	globalManager.slotOverwrites.WithLabelValues(kind).Inc()
}

// RecordSessionVerdict counts a closed session by verdict.
func RecordSessionVerdict(verdict string) {
	globalManager.sessionVerdicts.WithLabelValues(verdict).Inc()
}

// RecordEventReceived counts a classified event.
func RecordEventReceived(kind string) {
	globalManager.eventsReceived.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event dropped at the boundary.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// RecordIngestFailure counts a failure swallowed by the ingest boundary.
func RecordIngestFailure(op string) {
	globalManager.ingestFailures.WithLabelValues(op).Inc()
}

// UpdateActiveSessions sets the open session gauge.
func UpdateActiveSessions(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionClosed counts a closed session.
func RecordSessionClosed() {
	globalManager.sessionsClosed.Inc()
}

// UpdateReportsStored sets the retained report gauge.
func UpdateReportsStored(count int) {
	globalManager.reportsStored.Set(float64(count))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(queue string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(capacity))
}

// UpdateQueueSize sets the queue length gauge.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(queue string, utilization float64) {
	globalManager.queueUtilization.WithLabelValues(queue).Set(utilization)
}

// RecordQueueEnqueue counts an enqueued item.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueued.WithLabelValues(queue).Inc()
}

// RecordQueueDequeue counts a dequeued item.
func RecordQueueDequeue(queue string) {
	globalManager.queueDequeued.WithLabelValues(queue).Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(queue, reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(queue, reason).Inc()
}

// RecordQueueProcessingLatency observes enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateLaneCount sets the dispatcher lane gauge.
func UpdateLaneCount(count int) {
	globalManager.laneCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes per-event processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a processing error.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
