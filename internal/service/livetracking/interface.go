package livetracking

import (
	"context"
	"io"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
)

// Transport opens a push stream of tracking updates for one delivery.
// Sink callbacks are made from a single delivery goroutine per stream.
type Transport interface {
	Open(ctx context.Context, deliveryID string, sink Sink) (io.Closer, error)
}

type Sink struct {
	OnEvent func(models.TrackingUpdate)
	// OnError reports a stream failure. The stream delivers nothing afterwards.
	OnError func(error)
}
