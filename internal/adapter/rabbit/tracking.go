package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
	"github.com/Temutjin2k/delivery-tracking/pkg/rabbit"
)

const (
	// ExchangeTracking fans every tracking update out to all service instances and subscribers.
	ExchangeTracking = "delivery_tracking"

	metricsService = "delivery-service"
)

// DeclareTracking declares the tracking fanout exchange on ch.
func DeclareTracking(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(ExchangeTracking, "fanout", true, false, false, false, nil)
}

type TrackingBroker struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewTrackingBroker(client *rabbit.RabbitMQ, l logger.Logger) *TrackingBroker {
	return &TrackingBroker{client: client, l: l}
}

// Publish sends a tracking update to the fanout exchange.
func (b *TrackingBroker) Publish(ctx context.Context, update models.TrackingUpdate) error {
	const op = "TrackingBroker.Publish"
	ctx = wrap.WithAction(ctx, "publish_tracking_update")

	body, err := json.Marshal(update)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: marshal: %w", op, err))
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Timestamp:     time.Now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	err = retry(ctx, 3, time.Second, func() error {
		if err := b.client.EnsureConnection(ctx); err != nil {
			return err
		}
		ch, err := b.client.Chan()
		if err != nil {
			return err
		}
		if err := DeclareTracking(ch); err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, ExchangeTracking, "", false, false, pub)
	})
	metrics.RecordRabbitMQPublish(metricsService, ExchangeTracking, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: publish: %w", op, err))
	}
	return nil
}

type TrackingHandlerFunc func(ctx context.Context, update models.TrackingUpdate) error

// Consume binds an exclusive queue to the fanout exchange and passes every update to fn
// in arrival order. It reconnects until ctx is done.
func (b *TrackingBroker) Consume(ctx context.Context, fn TrackingHandlerFunc) error {
	const op = "TrackingBroker.Consume"
	ctx = wrap.WithAction(ctx, "consume_tracking_updates")

	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "tracking consumer stopped by context")
			return nil
		}

		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err, "op", op)
			pause(ctx, 2*time.Second)
			continue
		}

		msgs, ch, err := b.subscribe(ctx)
		if err != nil {
			b.l.Error(ctx, "subscribe failed", err, "op", op)
			pause(ctx, 2*time.Second)
			continue
		}

		b.l.Info(ctx, "start consuming tracking updates", "exchange", ExchangeTracking)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				b.l.Info(ctx, "tracking consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					b.l.Warn(ctx, "message channel closed, reconnecting...", "op", op)
					pause(ctx, 2*time.Second)
					break consumeLoop
				}
				b.handleMessage(ctx, fn, msg)
			}
		}
	}
}

func (b *TrackingBroker) subscribe(ctx context.Context) (<-chan amqp.Delivery, *amqp.Channel, error) {
	ch, err := b.client.OpenChannel(ctx)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := ConsumeTracking(ch)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return msgs, ch, nil
}

// ConsumeTracking declares an exclusive auto-delete queue bound to the tracking exchange
// and starts consuming it with auto-ack.
func ConsumeTracking(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if err := DeclareTracking(ch); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", ExchangeTracking, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return msgs, nil
}

func (b *TrackingBroker) handleMessage(ctx context.Context, fn TrackingHandlerFunc, msg amqp.Delivery) {
	var update models.TrackingUpdate
	if err := json.Unmarshal(msg.Body, &update); err != nil {
		metrics.RecordRabbitMQConsume(metricsService, ExchangeTracking, err)
		b.l.Error(ctx, "decode failed", err)
		return
	}

	ctx = wrap.WithRequestID(wrap.WithDeliveryID(ctx, update.DeliveryID), msg.CorrelationId)
	ctx = wrap.WithAction(ctx, types.ActionTrackingEvent)

	err := fn(ctx, update)
	metrics.RecordRabbitMQConsume(metricsService, ExchangeTracking, err)
	if err != nil {
		b.l.Error(ctx, "failed to handle tracking update", err)
	}
}
