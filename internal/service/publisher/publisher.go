// Package publisher forwards sampled positions to the remote delivery service at a
// bounded rate.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
)

const DefaultWindow = 10 * time.Second

type Config struct {
	// Window is the minimum distance between two sends.
	Window time.Duration
	// Leading sends the first sample of a window immediately. When false only the
	// latest sample is sent, at window close.
	Leading bool
	// OnSessionExpired is called when the remote service rejects the credentials.
	OnSessionExpired func(deliveryID string)
}

func DefaultConfig() Config {
	return Config{Window: DefaultWindow, Leading: true}
}

type Publisher struct {
	pusher Pusher
	clk    clock.Clock
	cfg    Config
	log    logger.Logger

	mu         sync.Mutex
	deliveryID string
	attached   bool
	// epoch changes on every attach and detach; timers and sends from an older epoch are void.
	epoch      uint64
	windowOpen bool
	window     clock.Timer
	pending    *models.Position
	sendCtx    context.Context
	cancelSend context.CancelFunc

	inflight sync.WaitGroup
}

func New(pusher Pusher, clk clock.Clock, cfg Config, log logger.Logger) *Publisher {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Publisher{
		pusher: pusher,
		clk:    clk,
		cfg:    cfg,
		log:    log,
	}
}

// Attach binds the publisher to a delivery. Attaching to another delivery detaches first.
func (p *Publisher) Attach(deliveryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attached && p.deliveryID == deliveryID {
		return
	}
	p.detachLocked()

	p.deliveryID = deliveryID
	p.attached = true
	p.epoch++
	p.sendCtx, p.cancelSend = context.WithCancel(
		wrap.WithDeliveryID(wrap.WithAction(context.Background(), types.ActionPublishLocation), deliveryID),
	)
}

// Detach cancels the pending trailing send and any send in flight.
func (p *Publisher) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detachLocked()
}

// Wait blocks until all started sends have returned.
func (p *Publisher) Wait() {
	p.inflight.Wait()
}

// Accept takes a sample from the sampler. It never blocks on the network.
func (p *Publisher) Accept(pos models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.attached {
		return
	}
	if !pos.Valid() {
		p.log.Debug(p.sendCtx, "dropping invalid position")
		return
	}

	if p.windowOpen {
		p.pending = &pos
		return
	}

	p.openWindowLocked()
	if p.cfg.Leading {
		p.sendLocked(pos)
		return
	}
	p.pending = &pos
}

func (p *Publisher) openWindowLocked() {
	epoch := p.epoch
	p.windowOpen = true
	p.window = p.clk.AfterFunc(p.cfg.Window, func() { p.closeWindow(epoch) })
}

func (p *Publisher) closeWindow(epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if epoch != p.epoch {
		return
	}
	if p.pending == nil {
		p.windowOpen = false
		p.window = nil
		return
	}

	pos := *p.pending
	p.pending = nil
	p.openWindowLocked()
	p.sendLocked(pos)
}

func (p *Publisher) detachLocked() {
	if !p.attached {
		return
	}
	p.attached = false
	p.epoch++
	p.pending = nil
	p.windowOpen = false
	if p.window != nil {
		p.window.Stop()
		p.window = nil
	}
	if p.cancelSend != nil {
		p.cancelSend()
	}
}

func (p *Publisher) sendLocked(pos models.Position) {
	ctx := p.sendCtx
	deliveryID := p.deliveryID
	epoch := p.epoch

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.send(ctx, epoch, deliveryID, pos)
	}()
}

func (p *Publisher) send(ctx context.Context, epoch uint64, deliveryID string, pos models.Position) {
	const op = "Publisher.send"

	p.mu.Lock()
	current := epoch == p.epoch
	p.mu.Unlock()
	if !current {
		return
	}

	err := p.pusher.PushLocation(ctx, deliveryID, pos)
	switch {
	case err == nil:
		metrics.RecordPublish("success")
		p.log.Debug(ctx, "location published", "latitude", pos.Latitude, "longitude", pos.Longitude)

	case errors.Is(err, types.ErrSessionExpired):
		metrics.RecordPublish("session_expired")
		p.log.Warn(ctx, "session expired, location not published")
		if p.cfg.OnSessionExpired != nil {
			p.cfg.OnSessionExpired(deliveryID)
		}

	case ctx.Err() != nil:
		metrics.RecordPublish("cancelled")

	default:
		// dropped, the next sample supersedes it
		metrics.RecordPublish("error")
		err = fmt.Errorf("%s: %w: %w", op, types.ErrPublishFailed, err)
		p.log.Error(ctx, "failed to publish location", err)
	}
}
