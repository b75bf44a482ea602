package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthorityEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propagation_authority_events_total",
			Help: "Total number of authority change events processed (count)",
		},
		[]string{"change_type", "status"},
	)

	LinksChangeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propagation_links_change_events_total",
			Help: "Total number of links change events published (count)",
		},
		[]string{"change_type"},
	)

	SkippedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propagation_skipped_records_total",
			Help: "Total number of authority records skipped (count)",
		},
		[]string{"reason"},
	)

	PropagationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propagation_processing_duration_ms",
			Help:    "Processing duration per authority change in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"change_type"},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "propagation_batch_size",
			Help:    "Number of authority change events per consumed batch (count)",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	ConsortiumPropagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consortium_propagations_total",
			Help: "Total number of consortium shadow propagations (count)",
		},
		[]string{"status"},
	)

	ConsortiumQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consortium_queue_size",
			Help: "Current size of the consortium propagation queue (count)",
		},
	)

	DedupeGuardHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propagation_dedupe_guard_total",
			Help: "Total number of dedupe guard checks (count)",
		},
		[]string{"result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	SourceFileCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_file_cache_total",
			Help: "Total number of source file base URL cache lookups (count)",
		},
		[]string{"result"},
	)
)

func RegisterPropagationMetrics() {
	prometheus.MustRegister(AuthorityEventsTotal)
	prometheus.MustRegister(LinksChangeEventsTotal)
	prometheus.MustRegister(SkippedRecordsTotal)
	prometheus.MustRegister(PropagationDuration)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(DedupeGuardHitsTotal)
	prometheus.MustRegister(SourceFileCacheHitsTotal)
}

func RegisterConsortiumMetrics() {
	prometheus.MustRegister(ConsortiumPropagationsTotal)
	prometheus.MustRegister(ConsortiumQueueSize)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterDatabaseMetrics() {
	prometheus.MustRegister(DatabaseQueriesTotal)
}

func ObservePropagationDuration(changeType string, duration time.Duration) {
	PropagationDuration.WithLabelValues(changeType).Observe(float64(duration.Milliseconds()))
}

func IncAuthorityEvent(changeType, status string) {
	AuthorityEventsTotal.WithLabelValues(changeType, status).Inc()
}

func IncSkippedRecord(reason string) {
	SkippedRecordsTotal.WithLabelValues(reason).Inc()
}

func IncLinksChangeEvents(changeType string, n int) {
	LinksChangeEventsTotal.WithLabelValues(changeType).Add(float64(n))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}
