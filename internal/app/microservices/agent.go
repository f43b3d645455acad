package microservices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/delivery-tracking/config"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/geolocation"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/handler"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/server"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/remote"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/publisher"
	"github.com/Temutjin2k/delivery-tracking/internal/service/sampler"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

const trackPollInterval = time.Second

// DriverAgent replays a recorded track through the sampler and publishes the
// accepted positions to the delivery service.
type DriverAgent struct {
	deliveryID string
	client     *remote.Client
	watcher    *geolocation.ReplayWatcher
	publisher  *publisher.Publisher
	sampler    *sampler.Sampler
	httpServer *server.API

	// fatal receives failures that end the agent
	fatal chan error

	cfg config.Config
	log logger.Logger
}

func NewAgent(ctx context.Context, cfg config.Config, log logger.Logger) (*DriverAgent, error) {
	track, err := geolocation.LoadTrack(cfg.Agent.TrackFile)
	if err != nil {
		log.Error(ctx, "Failed to load track", err, "file", cfg.Agent.TrackFile)
		return nil, err
	}

	clk := clock.Real()
	a := &DriverAgent{
		deliveryID: cfg.DeliveryID,
		client:     remote.New(cfg.Agent.RemoteURL, models.Credentials{Token: cfg.Agent.Token}),
		watcher:    geolocation.NewReplayWatcher(track, clk, log),
		fatal:      make(chan error, 1),
		cfg:        cfg,
		log:        log,
	}

	a.publisher = publisher.New(a.client, clk, publisher.Config{
		Window:  cfg.Tracking.PublishWindow,
		Leading: cfg.Tracking.LeadingSend,
		OnSessionExpired: func(string) {
			a.stopWith(types.ErrSessionExpired)
		},
	}, log)

	a.sampler = sampler.New(cfg.DeliveryID, a.watcher, clk, tierTable(cfg.Tracking), sampler.Handlers{
		OnSample: a.publisher.Accept,
		OnTierChange: func(from, to types.AccuracyTier) {
			log.Info(a.ctx(types.ActionSamplerTierChanged), "accuracy tier changed", "from", from.String(), "to", to.String())
		},
		OnFailure: a.onFailure,
	}, log,
		sampler.WithUpgradeAfter(cfg.Tracking.UpgradeAfter),
		sampler.WithTimeoutBackoff(cfg.Tracking.TimeoutBackoff),
		sampler.WithMaxRetries(cfg.Tracking.MaxRetries),
	)

	a.httpServer, err = server.New(server.Options{
		Mode: types.DriverAgent,
		Port: cfg.Services.DriverAgent,
		Checks: map[string]handler.HealthCheck{
			"sampler": func(context.Context) error {
				if a.sampler.Session().ManualRefreshRequired {
					return types.ErrManualRefreshRequired
				}
				return nil
			},
		},
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return a, nil
}

func tierTable(c config.TrackingConfig) sampler.TierTable {
	return sampler.TierTable{
		types.TierHigh:     {EnableHighAccuracy: true, MaximumAge: c.HighMaximumAge, Timeout: c.HighTimeout},
		types.TierMedium:   {EnableHighAccuracy: true, MaximumAge: c.MediumMaximumAge, Timeout: c.MediumTimeout},
		types.TierLow:      {EnableHighAccuracy: false, MaximumAge: c.LowMaximumAge, Timeout: c.LowTimeout},
		types.TierFallback: {EnableHighAccuracy: false, MaximumAge: c.FallbackMaximumAge, Timeout: c.FallbackTimeout},
	}
}

func (a *DriverAgent) Start(ctx context.Context) error {
	ctx = wrap.WithDeliveryID(ctx, a.deliveryID)

	delivery, err := a.client.GetDelivery(ctx, a.deliveryID)
	if err != nil {
		return fmt.Errorf("failed to load delivery: %w", err)
	}
	if delivery.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", types.ErrDeliveryTerminal, delivery.Status)
	}

	errCh := make(chan error, 1)
	a.httpServer.Run(ctx, errCh)

	a.publisher.Attach(a.deliveryID)
	session := a.sampler.Start(types.TierHigh)
	defer a.close(ctx)

	a.log.Info(a.ctx(types.ActionSamplerStart), "driver agent started",
		"status", delivery.Status.String(),
		"tier", session.Tier.String(),
		"track", a.cfg.Agent.TrackFile,
	)

	// SIGHUP is the manual refresh after a tier exhaustion
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	ticker := time.NewTicker(trackPollInterval)
	defer ticker.Stop()

	for {
		select {
		case errRun := <-errCh:
			return errRun
		case err := <-a.fatal:
			return err
		case sig := <-signalCh:
			if sig == syscall.SIGHUP {
				s := a.sampler.Refresh()
				a.log.Info(ctx, "sampler refreshed", "tier", s.Tier.String())
				continue
			}
			a.log.Info(ctx, "shuting down application", "signal", sig.String())
			return nil
		case <-ticker.C:
			if a.watcher.Done() {
				a.log.Info(ctx, "track fully replayed")
				return nil
			}
		}
	}
}

func (a *DriverAgent) onFailure(err error) {
	ctx := a.ctx(types.ActionSamplerFailure)
	switch {
	case errors.Is(err, types.ErrPermissionDenied):
		a.stopWith(err)
	case errors.Is(err, types.ErrManualRefreshRequired):
		a.log.Warn(ctx, "location sampling exhausted every tier, send SIGHUP to refresh", "pid", os.Getpid())
	default:
		a.log.Error(ctx, "location sampling failed", err)
	}
}

func (a *DriverAgent) stopWith(err error) {
	select {
	case a.fatal <- err:
	default:
	}
}

// close stops sampling before detaching so no sample reaches a detached publisher.
func (a *DriverAgent) close(ctx context.Context) {
	a.sampler.Stop()
	a.publisher.Detach()
	a.publisher.Wait()

	if err := a.httpServer.Stop(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
	}
	a.log.Info(ctx, "driver agent closed")
}

func (a *DriverAgent) ctx(action string) context.Context {
	return wrap.WithDeliveryID(wrap.WithAction(context.Background(), action), a.deliveryID)
}
