package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/service/sampler"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// CoarseAccuracy is the best accuracy, in meters, reported when a watch does not
// ask for high accuracy.
const CoarseAccuracy = 100.0

// ReplayWatcher implements sampler.Watcher by replaying a Track. The position in
// the track survives restarts, so a sampler that restarts its watch continues
// where the previous watch stopped.
type ReplayWatcher struct {
	track *Track
	clk   clock.Clock
	l     logger.Logger

	mu     sync.Mutex
	cursor int
}

func NewReplayWatcher(track *Track, clk clock.Clock, l logger.Logger) *ReplayWatcher {
	return &ReplayWatcher{
		track: track,
		clk:   clk,
		l:     l,
	}
}

func (w *ReplayWatcher) Watch(opts sampler.WatchOptions, onPosition func(models.RawPosition), onError func(sampler.WatchError)) func() {
	r := &replay{
		w:          w,
		opts:       opts,
		onPosition: onPosition,
		onError:    onError,
	}

	r.mu.Lock()
	r.scheduleLocked()
	r.armTimeoutLocked()
	r.mu.Unlock()

	w.l.Debug(wrap.WithAction(context.Background(), "replay_watch"), "replay watch started",
		"high_accuracy", opts.EnableHighAccuracy,
		"timeout", opts.Timeout.String(),
	)

	return r.cancel
}

func (w *ReplayWatcher) peek() (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cursor >= len(w.track.Entries) {
		if !w.track.Loop {
			return Entry{}, false
		}
		w.cursor = 0
	}
	return w.track.Entries[w.cursor], true
}

func (w *ReplayWatcher) advance() {
	w.mu.Lock()
	w.cursor++
	w.mu.Unlock()
}

// Done reports whether a non-looping track has been fully replayed.
func (w *ReplayWatcher) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.track.Loop && w.cursor >= len(w.track.Entries)
}

// replay is a single watch. Every callback is made outside of mu.
type replay struct {
	w          *ReplayWatcher
	opts       sampler.WatchOptions
	onPosition func(models.RawPosition)
	onError    func(sampler.WatchError)

	mu      sync.Mutex
	stopped bool
	next    clock.Timer
	timeout clock.Timer
}

func (r *replay) scheduleLocked() {
	entry, ok := r.w.peek()
	if !ok {
		// the track went silent; only the timeout keeps reporting
		return
	}
	d := time.Duration(r.w.track.Interval) + time.Duration(entry.Delay)
	r.next = r.w.clk.AfterFunc(d, r.emit)
}

func (r *replay) armTimeoutLocked() {
	if r.timeout != nil {
		r.timeout.Stop()
		r.timeout = nil
	}
	if r.opts.Timeout <= 0 {
		return
	}
	r.timeout = r.w.clk.AfterFunc(r.opts.Timeout, r.expire)
}

func (r *replay) emit() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	entry, ok := r.w.peek()
	if !ok {
		r.mu.Unlock()
		return
	}
	r.w.advance()

	if !entry.isError() {
		r.armTimeoutLocked()
	}
	r.scheduleLocked()
	r.mu.Unlock()

	if entry.isError() {
		r.onError(sampler.WatchError{Code: entry.Error, Message: "replayed"})
		return
	}
	r.onPosition(r.fix(entry))
}

func (r *replay) expire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.armTimeoutLocked()
	r.mu.Unlock()

	r.onError(sampler.WatchError{Code: sampler.Timeout, Message: "no fix within " + r.opts.Timeout.String()})
}

func (r *replay) fix(e Entry) models.RawPosition {
	now := r.w.clk.Now()
	raw := models.RawPosition{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Timestamp: &now,
	}
	if e.Accuracy != nil {
		acc := *e.Accuracy
		if !r.opts.EnableHighAccuracy && acc < CoarseAccuracy {
			acc = CoarseAccuracy
		}
		raw.Accuracy = &acc
	}
	return raw
}

func (r *replay) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	if r.next != nil {
		r.next.Stop()
	}
	if r.timeout != nil {
		r.timeout.Stop()
	}
}
