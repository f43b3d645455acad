package microservices

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/delivery-tracking/config"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/remote"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/statusmachine"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// StatusUpdater applies one status transition. The transition is checked locally
// first so an invalid one never reaches the service.
type StatusUpdater struct {
	deliveryID string
	rawStatus  string
	client     *remote.Client

	log logger.Logger
}

func NewStatus(_ context.Context, cfg config.Config, log logger.Logger) (*StatusUpdater, error) {
	return &StatusUpdater{
		deliveryID: cfg.DeliveryID,
		rawStatus:  cfg.Status,
		client:     remote.New(cfg.Agent.RemoteURL, models.Credentials{Token: cfg.Agent.Token}),
		log:        log,
	}, nil
}

func (s *StatusUpdater) Start(ctx context.Context) error {
	const op = "StatusUpdater.Start"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "set_status"), s.deliveryID)

	next, err := types.NormalizeDeliveryStatus(s.rawStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.client.GetDelivery(ctx, s.deliveryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := statusmachine.ApplyTransition(current.Status, next); err != nil {
		allowed := make([]string, 0, 2)
		for _, st := range statusmachine.Allowed(current.Status) {
			allowed = append(allowed, st.String())
		}
		s.log.Warn(ctx, "transition rejected", "current", current.Status.String(), "allowed", allowed)
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.client.UpdateStatus(ctx, s.deliveryID, next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info(ctx, "delivery status updated",
		"from", current.Status.String(),
		"to", updated.Status.String(),
		"updated_at", updated.UpdatedAt,
	)
	return nil
}
