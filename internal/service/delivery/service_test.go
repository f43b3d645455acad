package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/statusmachine"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

var now = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

type stubRepo struct {
	deliveries map[string]*models.Delivery
}

func (r *stubRepo) Get(_ context.Context, id string) (*models.Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, types.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubRepo) GetForUpdate(ctx context.Context, id string) (*models.Delivery, error) {
	return r.Get(ctx, id)
}

func (r *stubRepo) UpdateStatus(_ context.Context, id string, status types.DeliveryStatus) (time.Time, error) {
	r.deliveries[id].Status = status
	r.deliveries[id].UpdatedAt = now
	return now, nil
}

func (r *stubRepo) UpdateLocation(_ context.Context, id string, pos models.Position) (time.Time, error) {
	r.deliveries[id].LastKnownDriverLocation = &pos
	r.deliveries[id].UpdatedAt = now
	return now, nil
}

type stubHistory struct{ added int }

func (h *stubHistory) Add(context.Context, string, *string, models.Position) error {
	h.added++
	return nil
}

type stubEvents struct{ kinds []types.TrackingEvent }

func (e *stubEvents) CreateEvent(_ context.Context, _ string, t types.TrackingEvent, _ json.RawMessage) error {
	e.kinds = append(e.kinds, t)
	return nil
}

type stubCache struct {
	positions map[string]models.Position
}

func (c *stubCache) Set(_ context.Context, id string, pos models.Position) error {
	c.positions[id] = pos
	return nil
}

func (c *stubCache) Get(_ context.Context, id string) (models.Position, bool, error) {
	p, ok := c.positions[id]
	return p, ok, nil
}

func (c *stubCache) Delete(_ context.Context, id string) error {
	delete(c.positions, id)
	return nil
}

type stubPublisher struct {
	updates []models.TrackingUpdate
	err     error
}

func (p *stubPublisher) Publish(_ context.Context, u models.TrackingUpdate) error {
	p.updates = append(p.updates, u)
	return p.err
}

type stubHub struct {
	topics []string
}

func (h *stubHub) Broadcast(topic string, _ any) int {
	h.topics = append(h.topics, topic)
	return 1
}

// stubTx runs fn without a real transaction.
type stubTx struct{}

func (stubTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc       *Service
	repo      *stubRepo
	history   *stubHistory
	events    *stubEvents
	cache     *stubCache
	publisher *stubPublisher
	hub       *stubHub
}

func newFixture(status types.DeliveryStatus) *fixture {
	driver := "driver-1"
	f := &fixture{
		repo: &stubRepo{deliveries: map[string]*models.Delivery{
			"D1": {ID: "D1", Status: status, DriverID: &driver},
		}},
		history:   &stubHistory{},
		events:    &stubEvents{},
		cache:     &stubCache{positions: map[string]models.Position{}},
		publisher: &stubPublisher{},
		hub:       &stubHub{},
	}
	f.svc = NewService(f.repo, f.history, f.events, f.cache, f.publisher, f.hub, stubTx{}, logger.Nop())
	return f
}

func validPos() models.Position {
	return models.Position{Latitude: 43.2, Longitude: 76.9, Accuracy: 10, Timestamp: now.Add(-time.Second)}
}

func TestUpdateLocation_PersistsCachesAndPublishes(t *testing.T) {
	f := newFixture(types.StatusOutForDelivery)

	receipt, err := f.svc.UpdateLocation(context.Background(), "D1", validPos())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.DeliveryID != "D1" || !receipt.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if f.history.added != 1 {
		t.Fatalf("expected history row")
	}
	if len(f.events.kinds) != 1 || f.events.kinds[0] != types.EventLocationUpdated {
		t.Fatalf("expected LOCATION_UPDATED event, got %v", f.events.kinds)
	}
	if _, ok := f.cache.positions["D1"]; !ok {
		t.Fatalf("expected cached location")
	}
	if len(f.publisher.updates) != 1 || f.publisher.updates[0].DriverLocation == nil || f.publisher.updates[0].Status != nil {
		t.Fatalf("expected one location update, got %+v", f.publisher.updates)
	}
}

func TestUpdateLocation_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  types.DeliveryStatus
		id      string
		pos     models.Position
		ctx     context.Context
		wantErr error
	}{
		{"invalid position", types.StatusOutForDelivery, "D1", models.Position{Latitude: 100, Timestamp: now}, context.Background(), types.ErrInvalidPosition},
		{"unknown delivery", types.StatusOutForDelivery, "nope", validPos(), context.Background(), types.ErrDeliveryNotFound},
		{"terminal delivery", types.StatusDelivered, "D1", validPos(), context.Background(), types.ErrDeliveryTerminal},
		{"other driver", types.StatusOutForDelivery, "D1", validPos(),
			models.WithClaims(context.Background(), &models.Claims{Subject: "driver-2", Role: types.RoleDriver}), types.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.status)
			_, err := f.svc.UpdateLocation(tt.ctx, tt.id, tt.pos)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.publisher.updates) != 0 {
				t.Fatalf("rejected update must not be published")
			}
		})
	}
}

func TestDriverRejectedWhenNoDriverAssigned(t *testing.T) {
	f := newFixture(types.StatusPending)
	f.repo.deliveries["D1"].DriverID = nil
	ctx := models.WithClaims(context.Background(), &models.Claims{Subject: "driver-1", Role: types.RoleDriver})

	if _, err := f.svc.UpdateLocation(ctx, "D1", validPos()); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("location push: expected %v, got %v", types.ErrForbidden, err)
	}
	if _, err := f.svc.UpdateStatus(ctx, "D1", "driver_assigned"); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("status change: expected %v, got %v", types.ErrForbidden, err)
	}
	if f.history.added != 0 || len(f.publisher.updates) != 0 {
		t.Fatalf("rejected requests must not persist or publish")
	}
	if f.repo.deliveries["D1"].Status != types.StatusPending {
		t.Fatalf("status must be unchanged, got %s", f.repo.deliveries["D1"].Status)
	}
}

func TestUpdateStatus_NormalizesAndApplies(t *testing.T) {
	f := newFixture(types.StatusDriverAssigned)
	f.cache.positions["D1"] = validPos()

	p, err := f.svc.UpdateStatus(context.Background(), "D1", "On The Way")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != types.StatusOutForDelivery {
		t.Fatalf("status = %s, want out_for_delivery", p.Status)
	}
	if len(f.publisher.updates) != 1 || f.publisher.updates[0].Status == nil || *f.publisher.updates[0].Status != types.StatusOutForDelivery {
		t.Fatalf("expected status update published, got %+v", f.publisher.updates)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), "D1", "delivered"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.cache.positions["D1"]; ok {
		t.Fatalf("cached location must be dropped at terminal status")
	}
	if len(f.events.kinds) != 2 || f.events.kinds[1] != types.EventStatusChanged {
		t.Fatalf("expected two STATUS_CHANGED events, got %v", f.events.kinds)
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newFixture(types.StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), "D1", "out_for_delivery")
	var ite *statusmachine.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.From != types.StatusPending || ite.To != types.StatusOutForDelivery {
		t.Fatalf("unexpected payload %+v", ite)
	}
	if f.repo.deliveries["D1"].Status != types.StatusPending {
		t.Fatalf("status must not change")
	}
	if len(f.publisher.updates) != 0 || len(f.events.kinds) != 0 {
		t.Fatalf("nothing must be recorded for a rejected transition")
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(types.StatusPending)
	if _, err := f.svc.UpdateStatus(context.Background(), "D1", "teleported"); !errors.Is(err, types.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestUpdateStatus_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(types.StatusPending)
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.UpdateStatus(context.Background(), "D1", "assigned"); err != nil {
		t.Fatalf("publish failure must not fail the update: %v", err)
	}
	if f.repo.deliveries["D1"].Status != types.StatusDriverAssigned {
		t.Fatalf("status must be stored")
	}
}

func TestGet_PrefersFresherCachedLocation(t *testing.T) {
	f := newFixture(types.StatusOutForDelivery)
	old := validPos()
	old.Timestamp = now.Add(-time.Hour)
	f.repo.deliveries["D1"].LastKnownDriverLocation = &old

	fresh := validPos()
	fresh.Latitude = 44
	f.cache.positions["D1"] = fresh

	p, err := f.svc.Get(context.Background(), "D1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.LastKnownDriverLocation == nil || p.LastKnownDriverLocation.Latitude != 44 {
		t.Fatalf("expected cached location, got %+v", p.LastKnownDriverLocation)
	}
}

func TestFanout_BroadcastsToDeliveryTopic(t *testing.T) {
	f := newFixture(types.StatusOutForDelivery)
	if err := f.svc.Fanout(context.Background(), models.TrackingUpdate{DeliveryID: "D1", Timestamp: now}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.hub.topics) != 1 || f.hub.topics[0] != "D1" {
		t.Fatalf("expected broadcast to D1, got %v", f.hub.topics)
	}
}
