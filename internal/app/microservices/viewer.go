package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/delivery-tracking/config"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/remote"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/transport"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/livetracking"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/rabbit"
)

const (
	transportWebSocket = "websocket"
	transportRabbitMQ  = "rabbitmq"
)

// TrackingViewer follows one delivery until it reaches a terminal status.
type TrackingViewer struct {
	deliveryID string
	client     *remote.Client
	channel    *livetracking.Channel
	rabbit     *rabbit.RabbitMQ

	log logger.Logger
}

func NewViewer(ctx context.Context, cfg config.Config, log logger.Logger) (*TrackingViewer, error) {
	creds := models.Credentials{Token: cfg.Viewer.Token}
	v := &TrackingViewer{
		deliveryID: cfg.DeliveryID,
		client:     remote.New(cfg.Viewer.BaseURL, creds),
		log:        log,
	}

	var t livetracking.Transport
	switch cfg.Viewer.Transport {
	case transportWebSocket:
		t = transport.NewWebSocket(cfg.Viewer.BaseURL, creds, log)
	case transportRabbitMQ:
		client, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to rabbitMQ", err)
			return nil, err
		}
		v.rabbit = client
		t = transport.NewRabbit(client, log)
	default:
		return nil, fmt.Errorf("unknown viewer transport %q", cfg.Viewer.Transport)
	}

	v.channel = livetracking.New(t, log)
	return v, nil
}

func (v *TrackingViewer) Start(ctx context.Context) error {
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, types.ActionTrackingSubscribe), v.deliveryID)
	defer v.close(ctx)

	opts := []livetracking.TrackOption{
		livetracking.WithOnChange(func(p models.DeliveryProjection) {
			v.print(ctx, p)
		}),
	}

	initial, err := v.client.GetDelivery(ctx, v.deliveryID)
	if err != nil {
		// live updates still arrive; the projection just starts empty
		v.log.Warn(ctx, "failed to load current delivery state", "error", err.Error())
	} else {
		v.print(ctx, *initial)
		opts = append(opts, livetracking.WithInitial(*initial))
	}

	tracker, err := v.channel.Track(ctx, v.deliveryID, opts...)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer tracker.Stop()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	select {
	case <-tracker.Done():
		if err := tracker.Err(); err != nil {
			return err
		}
		final := tracker.Snapshot()
		v.log.Info(ctx, "delivery finished", "status", final.Status.String())
		return nil
	case sig := <-shutdownCh:
		v.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

func (v *TrackingViewer) print(ctx context.Context, p models.DeliveryProjection) {
	args := []any{"status", p.Status.String(), "updated_at", p.UpdatedAt}
	if loc := p.LastKnownDriverLocation; loc != nil {
		args = append(args,
			"latitude", loc.Latitude,
			"longitude", loc.Longitude,
			"accuracy", loc.Accuracy,
		)
	}
	v.log.Info(wrap.WithAction(ctx, types.ActionTrackingEvent), "delivery update", args...)
}

func (v *TrackingViewer) close(ctx context.Context) {
	if v.rabbit != nil {
		if err := v.rabbit.Close(context.WithoutCancel(ctx)); err != nil {
			v.log.Warn(ctx, "Failed to close rabbitMQ connection", "error", err.Error())
		}
	}
}
