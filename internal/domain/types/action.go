package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionSamplerStart       = "sampler_start"
	ActionSamplerStop        = "sampler_stop"
	ActionSamplerTierChanged = "sampler_tier_changed"
	ActionSamplerFailure     = "sampler_failure"
	ActionPublishLocation    = "publish_location"
	ActionTrackingSubscribe  = "tracking_subscribe"
	ActionTrackingEvent      = "tracking_event"
)
