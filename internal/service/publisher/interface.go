package publisher

import (
	"context"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
)

// Pusher delivers a single position to the remote delivery service.
// It returns an error wrapping types.ErrSessionExpired when credentials are rejected.
type Pusher interface {
	PushLocation(ctx context.Context, deliveryID string, pos models.Position) error
}
