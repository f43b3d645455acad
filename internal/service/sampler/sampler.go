// Package sampler obtains the driver's position continuously, trading accuracy for
// reliability as the device reports failures.
package sampler

import (
	"context"
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

const (
	DefaultUpgradeAfter   = 60 * time.Second
	DefaultTimeoutBackoff = 5 * time.Second
	// DefaultMaxRetries is how many consecutive failures a tier tolerates; the next one degrades it.
	DefaultMaxRetries = 2
)

type Option func(*Sampler)

func WithUpgradeAfter(d time.Duration) Option {
	return func(s *Sampler) { s.upgradeAfter = d }
}

func WithTimeoutBackoff(d time.Duration) Option {
	return func(s *Sampler) { s.timeoutBackoff = d }
}

func WithMaxRetries(n int) Option {
	return func(s *Sampler) { s.maxRetries = n }
}

type Sampler struct {
	deliveryID string
	watcher    Watcher
	clk        clock.Clock
	tiers      TierTable
	h          Handlers
	log        logger.Logger

	upgradeAfter   time.Duration
	timeoutBackoff time.Duration
	maxRetries     int

	mu      sync.Mutex
	session models.TrackingSession
	// gen identifies the current watch. Callbacks carrying another generation are stale.
	gen          uint64
	cancelWatch  func()
	backoff      clock.Timer
	healthySince time.Time
}

func New(deliveryID string, watcher Watcher, clk clock.Clock, tiers TierTable, h Handlers, log logger.Logger, opts ...Option) *Sampler {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	s := &Sampler{
		deliveryID:     deliveryID,
		watcher:        watcher,
		clk:            clk,
		tiers:          tiers,
		h:              h,
		log:            log,
		upgradeAfter:   DefaultUpgradeAfter,
		timeoutBackoff: DefaultTimeoutBackoff,
		maxRetries:     DefaultMaxRetries,
		session:        models.TrackingSession{DeliveryID: deliveryID},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins sampling at tier. Calling it while already running only returns the
// current session.
func (s *Sampler) Start(tier types.AccuracyTier) models.TrackingSession {
	ctx := s.ctx(types.ActionSamplerStart)

	s.mu.Lock()
	if s.session.Running {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		s.log.Info(ctx, "sampler already running", "tier", snapshot.Tier.String())
		return snapshot
	}

	now := s.clk.Now()
	s.session.Tier = tier
	s.session.RetryCount = 0
	s.session.ManualRefreshRequired = false
	s.session.Running = true
	s.session.StartedAt = now
	s.healthySince = now
	s.gen++
	g := s.gen
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	metrics.SamplerCurrentTier.WithLabelValues(s.deliveryID).Set(float64(tier))
	s.log.Info(ctx, "sampler started", "tier", tier.String())

	s.watch(g, tier)
	return snapshot
}

// Stop cancels the watch and any pending backoff. It is safe to call when not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.session.Running {
		s.mu.Unlock()
		return
	}
	cancel := s.haltLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.log.Info(s.ctx(types.ActionSamplerStop), "sampler stopped")
}

// Refresh clears a manual refresh requirement and restarts sampling at the highest tier.
func (s *Sampler) Refresh() models.TrackingSession {
	s.Stop()
	return s.Start(types.TierHigh)
}

func (s *Sampler) Session() models.TrackingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sampler) watch(g uint64, tier types.AccuracyTier) {
	cancel := s.watcher.Watch(s.tiers.Options(tier),
		func(raw models.RawPosition) { s.handlePosition(g, raw) },
		func(we WatchError) { s.handleError(g, we) },
	)

	s.mu.Lock()
	if s.gen != g || !s.session.Running {
		// stopped or restarted while the watch was being set up
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancelWatch = cancel
	s.mu.Unlock()
}

func (s *Sampler) handlePosition(g uint64, raw models.RawPosition) {
	s.mu.Lock()
	if s.gen != g || !s.session.Running {
		s.mu.Unlock()
		return
	}

	pos, ok := raw.Position()
	if !ok {
		s.mu.Unlock()
		s.log.Debug(s.ctx(types.ActionSamplerFailure), "discarding incomplete position")
		return
	}

	now := s.clk.Now()
	if s.session.RetryCount != 0 {
		s.session.RetryCount = 0
		s.healthySince = now
	}
	s.session.LastPosition = &pos
	upgrade := s.session.Tier != types.TierHigh && now.Sub(s.healthySince) >= s.upgradeAfter
	onSample := s.h.OnSample
	s.mu.Unlock()

	if onSample != nil {
		onSample(pos)
	}

	if upgrade {
		s.upgrade(g)
	}
}

func (s *Sampler) upgrade(g uint64) {
	s.mu.Lock()
	// the handler may have stopped or restarted the sampler
	if s.gen != g || !s.session.Running {
		s.mu.Unlock()
		return
	}
	from := s.session.Tier
	to := from.Upgrade()
	cancel, next := s.restartLocked(to)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.notifyTierChange(from, to)
	s.watch(next, to)
}

func (s *Sampler) handleError(g uint64, we WatchError) {
	const op = "Sampler.handleError"
	ctx := s.ctx(types.ActionSamplerFailure)

	s.mu.Lock()
	if s.gen != g || !s.session.Running {
		s.mu.Unlock()
		return
	}
	metrics.SamplerFailuresTotal.WithLabelValues(string(we.Code)).Inc()

	switch we.Code {
	case PermissionDenied:
		cancel := s.haltLocked()
		s.session.ManualRefreshRequired = true
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		err := fmt.Errorf("%s: %w: %s", op, types.ErrPermissionDenied, we.Message)
		s.log.Error(ctx, "geolocation permission denied", err)
		s.fail(err)

	case Timeout:
		s.session.RetryCount++
		from := s.session.Tier
		to := from
		if s.session.RetryCount > s.maxRetries {
			if from == types.TierFallback {
				s.exhaustLocked(ctx, op, types.ErrTimeout)
				return
			}
			to = from.Degrade()
			s.session.Tier = to
			s.session.RetryCount = 0
			s.healthySince = s.clk.Now()
		}

		cancel := s.cancelWatch
		s.cancelWatch = nil
		s.stopBackoffLocked()
		s.gen++
		token := s.gen
		s.backoff = s.clk.AfterFunc(s.timeoutBackoff, func() { s.resume(token) })
		retries := s.session.RetryCount
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.log.Warn(ctx, "geolocation timeout, retrying after backoff",
			"tier", to.String(), "retry_count", retries, "backoff", s.timeoutBackoff.String())
		if to != from {
			s.notifyTierChange(from, to)
		}

	default: // PositionUnavailable and unclassified codes
		s.session.RetryCount++
		if s.session.RetryCount <= s.maxRetries {
			retries := s.session.RetryCount
			s.mu.Unlock()
			s.log.Warn(ctx, "position unavailable", "retry_count", retries, "code", string(we.Code))
			return
		}

		from := s.session.Tier
		if from == types.TierFallback {
			s.exhaustLocked(ctx, op, types.ErrPositionUnavailable)
			return
		}
		to := from.Degrade()
		cancel, next := s.restartLocked(to)
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.notifyTierChange(from, to)
		s.watch(next, to)
	}
}

// resume restarts the watch after a timeout backoff.
func (s *Sampler) resume(token uint64) {
	s.mu.Lock()
	if s.gen != token || !s.session.Running {
		s.mu.Unlock()
		return
	}
	s.backoff = nil
	s.gen++
	g := s.gen
	tier := s.session.Tier
	s.mu.Unlock()

	s.watch(g, tier)
}

// exhaustLocked stops auto-retry at the fallback tier. It releases the lock.
func (s *Sampler) exhaustLocked(ctx context.Context, op string, cause error) {
	cancel := s.haltLocked()
	s.session.ManualRefreshRequired = true
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := fmt.Errorf("%s: %w: %w", op, types.ErrManualRefreshRequired, cause)
	s.log.Error(ctx, "retries exhausted at fallback tier", err)
	s.fail(err)
}

// restartLocked moves the session to tier and invalidates the current watch.
// The returned cancel func must be called once the lock is released.
func (s *Sampler) restartLocked(tier types.AccuracyTier) (func(), uint64) {
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.stopBackoffLocked()
	s.session.Tier = tier
	s.session.RetryCount = 0
	s.healthySince = s.clk.Now()
	s.gen++
	return cancel, s.gen
}

func (s *Sampler) haltLocked() func() {
	cancel := s.cancelWatch
	s.cancelWatch = nil
	s.stopBackoffLocked()
	s.session.Running = false
	s.gen++
	return cancel
}

func (s *Sampler) stopBackoffLocked() {
	if s.backoff != nil {
		s.backoff.Stop()
		s.backoff = nil
	}
}

func (s *Sampler) notifyTierChange(from, to types.AccuracyTier) {
	metrics.RecordTierChange(s.deliveryID, from.String(), to.String(), int(to))
	s.log.Info(s.ctx(types.ActionSamplerTierChanged), "accuracy tier changed", "from", from.String(), "to", to.String())
	if s.h.OnTierChange != nil {
		s.h.OnTierChange(from, to)
	}
}

func (s *Sampler) fail(err error) {
	if s.h.OnFailure != nil {
		s.h.OnFailure(err)
	}
}

func (s *Sampler) snapshotLocked() models.TrackingSession {
	snapshot := s.session
	if s.session.LastPosition != nil {
		pos := *s.session.LastPosition
		snapshot.LastPosition = &pos
	}
	return snapshot
}

func (s *Sampler) ctx(action string) context.Context {
	return wrap.WithDeliveryID(wrap.WithAction(context.Background(), action), s.deliveryID)
}
