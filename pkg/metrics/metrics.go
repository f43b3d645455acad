package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Delivery metrics
	LocationUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_location_updates_total",
			Help: "Total number of driver location updates accepted by the delivery service",
		},
		[]string{"service", "status"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_status_transitions_total",
			Help: "Total number of delivery status transitions by target status and result",
		},
		[]string{"service", "to", "result"},
	)

	// Tracking metrics
	SamplerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_sampler_failures_total",
			Help: "Total number of geolocation failures by reason",
		},
		[]string{"reason"},
	)

	SamplerTierChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_sampler_tier_changes_total",
			Help: "Total number of accuracy tier changes",
		},
		[]string{"from", "to"},
	)

	SamplerCurrentTier = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracking_sampler_current_tier",
			Help: "Current accuracy tier (0=high, 3=fallback)",
		},
		[]string{"delivery_id"},
	)

	PublisherSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_publisher_sends_total",
			Help: "Total number of location pushes by result",
		},
		[]string{"result"},
	)

	ChannelEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_channel_events_total",
			Help: "Total number of live tracking events by result",
		},
		[]string{"result"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(service, queue, status).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, status).Inc()
}

// RecordPublish records the outcome of a single location push
func RecordPublish(result string) {
	PublisherSendsTotal.WithLabelValues(result).Inc()
}

// RecordTierChange records an accuracy tier change and the new current tier
func RecordTierChange(deliveryID, from, to string, current int) {
	SamplerTierChangesTotal.WithLabelValues(from, to).Inc()
	SamplerCurrentTier.WithLabelValues(deliveryID).Set(float64(current))
}

// RecordStatusTransition records a delivery status transition attempt
func RecordStatusTransition(service, to string, err error) {
	result := "success"
	if err != nil {
		result = "rejected"
	}
	StatusTransitionsTotal.WithLabelValues(service, to, result).Inc()
}
