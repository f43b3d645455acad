package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	broker "github.com/Temutjin2k/delivery-tracking/internal/adapter/rabbit"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/livetracking"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/rabbit"
)

// Rabbit subscribes straight to the tracking fanout exchange. Used by trusted
// consumers running next to the broker; it does no authentication of its own.
type Rabbit struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewRabbit(client *rabbit.RabbitMQ, l logger.Logger) *Rabbit {
	return &Rabbit{client: client, l: l}
}

var _ livetracking.Transport = (*Rabbit)(nil)

func (t *Rabbit) Open(ctx context.Context, deliveryID string, sink livetracking.Sink) (io.Closer, error) {
	const op = "RabbitTransport.Open"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, types.ActionTrackingSubscribe), deliveryID)

	if err := t.client.EnsureConnection(ctx); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrChannelClosed, err))
	}

	ch, err := t.client.OpenChannel(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrChannelClosed, err))
	}

	msgs, err := broker.ConsumeTracking(ch)
	if err != nil {
		_ = ch.Close()
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	s := &amqpStream{ch: ch, closed: ch.NotifyClose(make(chan *amqp.Error, 1)), l: t.l}
	go s.read(ctx, deliveryID, msgs, sink)

	return s, nil
}

type amqpStream struct {
	ch     *amqp.Channel
	closed chan *amqp.Error
	l      logger.Logger

	mu      sync.Mutex
	closing bool
}

func (s *amqpStream) read(ctx context.Context, deliveryID string, msgs <-chan amqp.Delivery, sink livetracking.Sink) {
	for msg := range msgs {
		var update models.TrackingUpdate
		if err := json.Unmarshal(msg.Body, &update); err != nil {
			s.l.Warn(ctx, "skipping malformed tracking message", "error", err.Error())
			continue
		}
		// the exchange carries every delivery
		if update.DeliveryID != deliveryID {
			continue
		}
		sink.OnEvent(update)
	}

	if s.isClosing() {
		return
	}

	err := types.ErrChannelClosed
	select {
	case reason, ok := <-s.closed:
		if ok && reason != nil {
			err = fmt.Errorf("%w: %s", types.ErrChannelClosed, reason.Error())
		}
	default:
	}
	sink.OnError(err)
}

func (s *amqpStream) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *amqpStream) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	return s.ch.Close()
}
