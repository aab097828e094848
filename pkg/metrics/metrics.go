package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsPulled counts change notifications received from the
	// subscription.
	NotificationsPulled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhook_notifications_pulled_total",
			Help: "Total number of change notifications pulled from the subscription",
		},
	)

	// NotificationOutcome counts pipeline results per outcome.
	NotificationOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhook_notification_outcome_total",
			Help: "Total number of processed notifications by outcome",
		},
		[]string{"outcome"},
	)

	// StageLatency 每个阶段的延迟（秒）
	StageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailhook_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"stage", "status"},
	)

	// Acknowledged counts ack ids sent back to the subscription.
	Acknowledged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhook_acknowledged_total",
			Help: "Total number of acknowledged notifications",
		},
		[]string{"status"},
	)

	// ChatDelivery counts chat sends by status (sent, failed).
	ChatDelivery = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhook_chat_delivery_total",
			Help: "Total number of chat delivery attempts",
		},
		[]string{"status"},
	)

	// PipelineFailures counts failure records reported to the observer hook.
	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhook_pipeline_failures_total",
			Help: "Total number of pipeline failures by stage",
		},
		[]string{"stage", "retryable"},
	)

	// SlowQueries 慢查询次数
	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhook_db_slow_queries_total",
			Help: "Total number of database queries over the slow threshold",
		},
	)

	// SlowQueryDuration 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailhook_db_slow_query_duration_seconds",
			Help:    "Duration of slow database queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12.8s
		},
	)

	// HTTPRequestDuration HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordStageLatency(stage, status string, duration time.Duration) {
	StageLatency.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func IncrementOutcome(outcome string) {
	NotificationOutcome.WithLabelValues(outcome).Inc()
}

func AddPulled(n int) {
	NotificationsPulled.Add(float64(n))
}

func AddAcknowledged(status string, n int) {
	Acknowledged.WithLabelValues(status).Add(float64(n))
}

func IncrementChatDelivery(status string) {
	ChatDelivery.WithLabelValues(status).Inc()
}

func IncrementPipelineFailure(stage string, retryable bool) {
	r := "false"
	if retryable {
		r = "true"
	}
	PipelineFailures.WithLabelValues(stage, r).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(duration time.Duration) {
	SlowQueries.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}
