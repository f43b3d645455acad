package livetracking

import (
	"context"
	"sync"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
)

// Tracker owns the projection of one tracked delivery. The projection is written
// only from channel updates and read through snapshots.
type Tracker struct {
	mu         sync.Mutex
	projection models.DeliveryProjection
	err        error
	unsub      Unsubscribe
	finished   bool

	onChange func(models.DeliveryProjection)
	done     chan struct{}
}

type TrackOption func(*Tracker)

// WithInitial seeds the projection, typically from a GET of the delivery.
func WithInitial(p models.DeliveryProjection) TrackOption {
	return func(t *Tracker) { t.projection = p }
}

// WithOnChange registers a callback receiving every new projection snapshot.
func WithOnChange(fn func(models.DeliveryProjection)) TrackOption {
	return func(t *Tracker) { t.onChange = fn }
}

// Track subscribes to deliveryID. The subscription ends by itself once a terminal
// status arrives or the channel fails.
func (c *Channel) Track(ctx context.Context, deliveryID string, opts ...TrackOption) (*Tracker, error) {
	t := &Tracker{
		projection: models.DeliveryProjection{DeliveryID: deliveryID},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.projection.DeliveryID = deliveryID

	if t.projection.Status.IsTerminal() {
		t.finish(nil)
		return t, nil
	}

	unsub, err := c.Subscribe(ctx, deliveryID, t.handleUpdate, t.handleError)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		unsub()
		return t, nil
	}
	t.unsub = unsub
	t.mu.Unlock()

	return t, nil
}

func (t *Tracker) Snapshot() models.DeliveryProjection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyProjection(t.projection)
}

// Done is closed when tracking ended.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Err returns the channel error that ended tracking, or nil when a terminal
// status ended it or tracking was stopped.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tracker) Stop() {
	t.finish(nil)
}

func (t *Tracker) handleUpdate(u models.TrackingUpdate) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.projection = t.projection.Apply(u)
	snapshot := copyProjection(t.projection)
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(snapshot)
	}
	if snapshot.Status.IsTerminal() {
		t.finish(nil)
	}
}

func (t *Tracker) handleError(ce *ChannelError) {
	t.finish(ce)
}

func (t *Tracker) finish(err error) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.err = err
	unsub := t.unsub
	t.unsub = nil
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	close(t.done)
}

func copyProjection(p models.DeliveryProjection) models.DeliveryProjection {
	if p.LastKnownDriverLocation != nil {
		loc := *p.LastKnownDriverLocation
		p.LastKnownDriverLocation = &loc
	}
	return p
}
