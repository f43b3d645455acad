package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/statusmachine"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
	"github.com/Temutjin2k/delivery-tracking/pkg/trm"
)

const serviceName = "delivery-service"

type Service struct {
	repo      DeliveryRepo
	history   LocationHistoryRepo
	events    EventRepo
	cache     LocationCache
	publisher UpdatePublisher
	hub       Broadcaster
	trm       trm.TxManager
	l         logger.Logger
}

func NewService(
	repo DeliveryRepo,
	history LocationHistoryRepo,
	events EventRepo,
	cache LocationCache,
	publisher UpdatePublisher,
	hub Broadcaster,
	txManager trm.TxManager,
	l logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		history:   history,
		events:    events,
		cache:     cache,
		publisher: publisher,
		hub:       hub,
		trm:       txManager,
		l:         l,
	}
}

// UpdateLocation stores the driver's latest position and fans it out.
func (s *Service) UpdateLocation(ctx context.Context, deliveryID string, pos models.Position) (*models.LocationReceipt, error) {
	const op = "DeliveryService.UpdateLocation"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "update_location"), deliveryID)

	if !pos.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, types.ErrInvalidPosition))
	}

	var updatedAt time.Time
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return fmt.Errorf("%w: %s", types.ErrDeliveryTerminal, d.Status)
		}
		if err := checkDriver(ctx, d); err != nil {
			return err
		}

		updatedAt, err = s.repo.UpdateLocation(ctx, deliveryID, pos)
		if err != nil {
			return err
		}
		if err := s.history.Add(ctx, deliveryID, d.DriverID, pos); err != nil {
			return err
		}

		data, err := json.Marshal(pos)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return s.events.CreateEvent(ctx, deliveryID, types.EventLocationUpdated, data)
	})
	metrics.LocationUpdatesTotal.WithLabelValues(serviceName, resultLabel(err)).Inc()
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if err := s.cache.Set(ctx, deliveryID, pos); err != nil {
		s.l.Warn(ctx, "failed to cache driver location", "error", err.Error())
	}

	loc := pos
	s.publish(ctx, models.TrackingUpdate{
		DeliveryID:     deliveryID,
		Timestamp:      updatedAt,
		DriverLocation: &loc,
	})

	return &models.LocationReceipt{DeliveryID: deliveryID, UpdatedAt: updatedAt}, nil
}

// UpdateStatus normalizes rawStatus and applies the transition.
func (s *Service) UpdateStatus(ctx context.Context, deliveryID, rawStatus string) (*models.DeliveryProjection, error) {
	const op = "DeliveryService.UpdateStatus"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "update_status"), deliveryID)

	next, err := types.NormalizeDeliveryStatus(rawStatus)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	var updated models.Delivery
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err := checkDriver(ctx, d); err != nil {
			return err
		}

		from := d.Status
		d.Status, err = statusmachine.ApplyTransition(d.Status, next)
		if err != nil {
			return err
		}

		if d.UpdatedAt, err = s.repo.UpdateStatus(ctx, deliveryID, d.Status); err != nil {
			return err
		}

		data, err := json.Marshal(map[string]types.DeliveryStatus{"from": from, "to": d.Status})
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := s.events.CreateEvent(ctx, deliveryID, types.EventStatusChanged, data); err != nil {
			return err
		}

		updated = *d
		return nil
	})
	metrics.RecordStatusTransition(serviceName, next.String(), err)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if updated.Status.IsTerminal() {
		if err := s.cache.Delete(ctx, deliveryID); err != nil {
			s.l.Warn(ctx, "failed to drop cached location", "error", err.Error())
		}
	}

	status := updated.Status
	s.publish(ctx, models.TrackingUpdate{
		DeliveryID: deliveryID,
		Timestamp:  updated.UpdatedAt,
		Status:     &status,
	})

	s.l.Info(ctx, "delivery status changed", "status", status.String())

	p := updated.Projection()
	return &p, nil
}

// Get returns the tracking projection, preferring a fresher cached location.
func (s *Service) Get(ctx context.Context, deliveryID string) (*models.DeliveryProjection, error) {
	const op = "DeliveryService.Get"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "get_delivery"), deliveryID)

	d, err := s.repo.Get(ctx, deliveryID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	p := d.Projection()
	if !p.Status.IsTerminal() {
		pos, ok, err := s.cache.Get(ctx, deliveryID)
		if err != nil {
			s.l.Warn(ctx, "failed to read cached location", "error", err.Error())
		}
		if ok && (p.LastKnownDriverLocation == nil || pos.Timestamp.After(p.LastKnownDriverLocation.Timestamp)) {
			p.LastKnownDriverLocation = &pos
		}
	}
	return &p, nil
}

// Fanout delivers an update received from the broker to local WebSocket subscribers.
func (s *Service) Fanout(ctx context.Context, update models.TrackingUpdate) error {
	n := s.hub.Broadcast(update.DeliveryID, update)
	s.l.Debug(ctx, "tracking update fanned out", "receivers", n)
	return nil
}

func (s *Service) publish(ctx context.Context, update models.TrackingUpdate) {
	if err := s.publisher.Publish(ctx, update); err != nil {
		// the database is the source of truth; subscribers catch up on the next update
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish tracking update", err)
	}
}

// checkDriver rejects drivers acting on deliveries not assigned to them,
// including deliveries with no driver yet.
func checkDriver(ctx context.Context, d *models.Delivery) error {
	claims := models.ClaimsFromContext(ctx)
	if claims == nil || claims.Role != types.RoleDriver {
		return nil
	}
	if d.DriverID == nil || *d.DriverID != claims.Subject {
		return types.ErrForbidden
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
