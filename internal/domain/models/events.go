package models

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// TrackingUpdate is the event fanned out to live tracking subscribers.
// RabbitMQ message: delivery_tracking fanout exchange, and WebSocket frames.
type TrackingUpdate struct {
	DeliveryID     string                `json:"delivery_id"`
	Timestamp      time.Time             `json:"timestamp"`
	DriverLocation *Position             `json:"driver_location,omitempty"`
	Status         *types.DeliveryStatus `json:"status,omitempty"`
}
