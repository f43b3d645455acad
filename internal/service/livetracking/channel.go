// Package livetracking exposes live driver location and status updates of a
// delivery to subscribers.
package livetracking

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
)

// Unsubscribe closes a subscription. It is idempotent, never blocks on a
// running callback and may be called from inside one. Once it returns no new
// event or error reaches the callbacks; a callback the transport goroutine had
// already entered may still be finishing.
type Unsubscribe func()

type Channel struct {
	transport Transport
	log       logger.Logger
}

func New(transport Transport, log logger.Logger) *Channel {
	return &Channel{
		transport: transport,
		log:       log,
	}
}

type subscription struct {
	deliveryID string
	onUpdate   func(models.TrackingUpdate)
	onError    func(*ChannelError)
	log        logger.Logger
	ctx        context.Context

	mu      sync.Mutex
	closed  bool
	stream  io.Closer
	last    time.Time
	hasLast bool
}

// Subscribe opens the transport for deliveryID and returns once it is set up.
// onUpdate receives events in non-decreasing timestamp order; older events are
// dropped. After onError the subscription is closed and nothing is reconnected.
func (c *Channel) Subscribe(ctx context.Context, deliveryID string, onUpdate func(models.TrackingUpdate), onError func(*ChannelError)) (Unsubscribe, error) {
	const op = "Channel.Subscribe"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, types.ActionTrackingSubscribe), deliveryID)

	sub := &subscription{
		deliveryID: deliveryID,
		onUpdate:   onUpdate,
		onError:    onError,
		log:        c.log,
		ctx:        wrap.WithDeliveryID(wrap.WithAction(context.Background(), types.ActionTrackingEvent), deliveryID),
	}

	stream, err := c.transport.Open(ctx, deliveryID, Sink{
		OnEvent: sub.handleEvent,
		OnError: sub.handleError,
	})
	if err != nil {
		ce := Classify(err)
		c.log.Error(ctx, "failed to open tracking stream", ce, "reason", string(ce.Reason))
		return nil, fmt.Errorf("%s: %w", op, ce)
	}

	sub.mu.Lock()
	if sub.closed {
		// failed while opening
		sub.mu.Unlock()
		_ = stream.Close()
		return func() {}, nil
	}
	sub.stream = stream
	sub.mu.Unlock()

	c.log.Info(ctx, "subscribed to live tracking")
	return sub.unsubscribe, nil
}

func (s *subscription) handleEvent(u models.TrackingUpdate) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		metrics.ChannelEventsTotal.WithLabelValues("after_close").Inc()
		return
	case u.DeliveryID != s.deliveryID:
		s.mu.Unlock()
		metrics.ChannelEventsTotal.WithLabelValues("foreign").Inc()
		return
	case s.hasLast && u.Timestamp.Before(s.last):
		s.mu.Unlock()
		metrics.ChannelEventsTotal.WithLabelValues("out_of_order").Inc()
		s.log.Debug(s.ctx, "dropping out of order event", "timestamp", u.Timestamp, "last", s.last)
		return
	}
	// the closed check and the order watermark commit together; a concurrent
	// unsubscribe either wins here or lets this one callback through
	s.last = u.Timestamp
	s.hasLast = true
	s.mu.Unlock()

	metrics.ChannelEventsTotal.WithLabelValues("delivered").Inc()
	if s.onUpdate != nil {
		s.onUpdate(u)
	}
}

func (s *subscription) handleError(err error) {
	ce := Classify(err)

	if !s.close() {
		return
	}
	s.log.Error(s.ctx, "live tracking stream failed", ce, "reason", string(ce.Reason))
	if s.onError != nil {
		s.onError(ce)
	}
}

func (s *subscription) unsubscribe() {
	if s.close() {
		s.log.Info(s.ctx, "unsubscribed from live tracking")
	}
}

// close marks the subscription closed and closes the stream. It reports whether
// this call did the closing.
func (s *subscription) close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			s.log.Warn(s.ctx, "failed to close tracking stream", "error", err.Error())
		}
	}
	return true
}
