package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

type DeliveryRepo interface {
	Get(ctx context.Context, id string) (*models.Delivery, error)
	GetForUpdate(ctx context.Context, id string) (*models.Delivery, error)
	UpdateStatus(ctx context.Context, id string, status types.DeliveryStatus) (time.Time, error)
	UpdateLocation(ctx context.Context, id string, pos models.Position) (time.Time, error)
}

type LocationHistoryRepo interface {
	Add(ctx context.Context, deliveryID string, driverID *string, pos models.Position) error
}

type EventRepo interface {
	CreateEvent(ctx context.Context, deliveryID string, eventType types.TrackingEvent, eventData json.RawMessage) error
}

type LocationCache interface {
	Set(ctx context.Context, deliveryID string, pos models.Position) error
	Get(ctx context.Context, deliveryID string) (models.Position, bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// UpdatePublisher fans tracking updates out to every service instance.
type UpdatePublisher interface {
	Publish(ctx context.Context, update models.TrackingUpdate) error
}

// Broadcaster pushes updates to the WebSocket subscribers of this instance.
type Broadcaster interface {
	Broadcast(topic string, msg any) int
}
