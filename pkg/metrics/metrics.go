package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PushMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_messages_total",
			Help: "Total number of push messages by pipeline stage outcome (count)",
		},
		[]string{"stage", "status"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_pipeline_duration_ms",
			Help:    "End-to-end handling duration of a push message in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"outcome"},
	)

	DedupInsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_inserts_total",
			Help: "Total number of insert-if-new calls against the notification store (count)",
		},
		[]string{"status"},
	)

	DedupInsertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dedup_insert_duration_ms",
			Help:    "Duration of insert-if-new calls including guard wait in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	NotificationStoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_store_size",
			Help: "Number of notifications currently held by the store (count)",
		},
	)

	RetentionPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_retention_pruned_total",
			Help: "Total number of notifications removed by the retention job (count)",
		},
	)

	FilterDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_decisions_total",
			Help: "Total number of user-notification filter decisions by reason (count)",
		},
		[]string{"reason"},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of kind inferences by result (count)",
		},
		[]string{"result"},
	)

	ClassifierRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "classifier_rules",
			Help: "Number of active classification rules (count)",
		},
	)

	SinkDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_dispatch_total",
			Help: "Total number of sink invocations (count)",
		},
		[]string{"sink", "status"},
	)

	EventBusSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_bus_subscribers",
			Help: "Number of connected event stream subscribers (count)",
		},
	)

	EventBusDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_dropped_total",
			Help: "Total number of events dropped for slow subscribers (count)",
		},
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

	MQTTMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_total",
			Help: "Total number of MQTT push messages received (count)",
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component"},
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

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"route", "status"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(PushMessagesTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(DedupInsertsTotal)
	prometheus.MustRegister(DedupInsertDuration)
	prometheus.MustRegister(NotificationStoreSize)
	prometheus.MustRegister(RetentionPrunedTotal)
	prometheus.MustRegister(FilterDecisionsTotal)
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(ClassifierRules)
	prometheus.MustRegister(SinkDispatchTotal)
	prometheus.MustRegister(EventBusSubscribers)
	prometheus.MustRegister(EventBusDroppedTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
	prometheus.MustRegister(MQTTMessagesTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncPushStage(stage, status string) {
	PushMessagesTotal.WithLabelValues(stage, status).Inc()
}

func ObservePipelineDuration(duration time.Duration, outcome string) {
	PipelineDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func ObserveDedupInsert(duration time.Duration, status string) {
	DedupInsertsTotal.WithLabelValues(status).Inc()
	DedupInsertDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetNotificationStoreSize(size int) {
	NotificationStoreSize.Set(float64(size))
}

func AddRetentionPruned(n int64) {
	RetentionPrunedTotal.Add(float64(n))
}

func IncFilterDecision(reason string) {
	FilterDecisionsTotal.WithLabelValues(reason).Inc()
}

func SetClassifierRules(count int) {
	ClassifierRules.Set(float64(count))
}

func IncSinkDispatch(sink, status string) {
	SinkDispatchTotal.WithLabelValues(sink, status).Inc()
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

func IncRateLimit(route, status string) {
	RateLimitRequestsTotal.WithLabelValues(route, status).Inc()
}
