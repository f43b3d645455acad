package sampler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

type watchCall struct {
	opts       WatchOptions
	onPosition func(models.RawPosition)
	onError    func(WatchError)

	mu        sync.Mutex
	cancelled bool
}

func (c *watchCall) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

type fakeWatcher struct {
	mu    sync.Mutex
	calls []*watchCall
}

func (w *fakeWatcher) Watch(opts WatchOptions, onPosition func(models.RawPosition), onError func(WatchError)) func() {
	c := &watchCall{opts: opts, onPosition: onPosition, onError: onError}
	w.mu.Lock()
	w.calls = append(w.calls, c)
	w.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.cancelled = true
		c.mu.Unlock()
	}
}

func (w *fakeWatcher) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

func (w *fakeWatcher) last() *watchCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[len(w.calls)-1]
}

type recorder struct {
	samples  []models.Position
	changes  [][2]types.AccuracyTier
	failures []error
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnSample:     func(p models.Position) { r.samples = append(r.samples, p) },
		OnTierChange: func(from, to types.AccuracyTier) { r.changes = append(r.changes, [2]types.AccuracyTier{from, to}) },
		OnFailure:    func(err error) { r.failures = append(r.failures, err) },
	}
}

func rawAt(ts time.Time) models.RawPosition {
	lat, lon, acc := 43.238949, 76.889709, 8.0
	return models.RawPosition{Latitude: &lat, Longitude: &lon, Accuracy: &acc, Timestamp: &ts}
}

func newTestSampler(t *testing.T, h Handlers) (*Sampler, *fakeWatcher, *clock.Fake) {
	t.Helper()
	w := &fakeWatcher{}
	clk := clock.NewFake(time.Unix(1700000000, 0))
	return New("D1", w, clk, DefaultTiers(), h, logger.Nop()), w, clk
}

func TestSampler_StartIsIdempotent(t *testing.T) {
	s, w, _ := newTestSampler(t, Handlers{})

	first := s.Start(types.TierMedium)
	second := s.Start(types.TierHigh)

	if w.count() != 1 {
		t.Fatalf("expected a single watch, got %d", w.count())
	}
	if second.Tier != types.TierMedium || !second.Running {
		t.Fatalf("second Start must return the existing session, got %+v", second)
	}
	if !first.StartedAt.Equal(second.StartedAt) {
		t.Fatalf("session start time changed: %v vs %v", first.StartedAt, second.StartedAt)
	}
	if w.last().opts != DefaultTiers()[types.TierMedium] {
		t.Fatalf("watch used wrong options: %+v", w.last().opts)
	}
}

func TestSampler_DegradesAfterThirdUnavailable(t *testing.T) {
	rec := &recorder{}
	s, w, _ := newTestSampler(t, rec.handlers())
	s.Start(types.TierHigh)

	ladder := []types.AccuracyTier{types.TierHigh, types.TierMedium, types.TierLow, types.TierFallback}
	for i := 0; i < len(ladder)-1; i++ {
		call := w.last()
		call.onError(WatchError{Code: PositionUnavailable})
		call.onError(WatchError{Code: PositionUnavailable})
		if got := s.Session(); got.Tier != ladder[i] || got.RetryCount != 2 {
			t.Fatalf("after 2 failures expected tier %s retry 2, got %s retry %d", ladder[i], got.Tier, got.RetryCount)
		}

		call.onError(WatchError{Code: PositionUnavailable})
		got := s.Session()
		if got.Tier != ladder[i+1] {
			t.Fatalf("after 3rd failure expected tier %s, got %s", ladder[i+1], got.Tier)
		}
		if got.RetryCount != 0 {
			t.Fatalf("retry counter must reset on degrade, got %d", got.RetryCount)
		}
		if !call.isCancelled() {
			t.Fatalf("previous watch must be cancelled on degrade")
		}
		if w.last().opts != DefaultTiers()[ladder[i+1]] {
			t.Fatalf("restart used wrong options for %s", ladder[i+1])
		}
	}

	if len(rec.changes) != 3 {
		t.Fatalf("expected 3 tier changes, got %v", rec.changes)
	}
	for i, ch := range rec.changes {
		if ch[0] != ladder[i] || ch[1] != ladder[i+1] {
			t.Fatalf("tier change %d skipped a level: %v", i, ch)
		}
	}

	call := w.last()
	for i := 0; i < 3; i++ {
		call.onError(WatchError{Code: PositionUnavailable})
	}

	got := s.Session()
	if !got.ManualRefreshRequired || got.Running {
		t.Fatalf("expected manual refresh required and stopped, got %+v", got)
	}
	if len(rec.failures) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(rec.failures))
	}
	if !errors.Is(rec.failures[0], types.ErrManualRefreshRequired) || !errors.Is(rec.failures[0], types.ErrPositionUnavailable) {
		t.Fatalf("unexpected failure: %v", rec.failures[0])
	}
	if !call.isCancelled() {
		t.Fatalf("watch must be cancelled after exhaustion")
	}
}

func TestSampler_IgnoresStaleCallbacks(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierHigh)

	old := w.last()
	for i := 0; i < 3; i++ {
		old.onError(WatchError{Code: PositionUnavailable})
	}

	old.onError(WatchError{Code: PositionUnavailable})
	old.onPosition(rawAt(clk.Now()))

	got := s.Session()
	if got.RetryCount != 0 || got.LastPosition != nil {
		t.Fatalf("stale callbacks must be ignored, got %+v", got)
	}
	if len(rec.samples) != 0 {
		t.Fatalf("stale sample delivered")
	}
}

func TestSampler_PermissionDeniedIsTerminal(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierHigh)

	call := w.last()
	call.onError(WatchError{Code: PermissionDenied, Message: "user denied geolocation"})

	got := s.Session()
	if !got.ManualRefreshRequired || got.Running {
		t.Fatalf("expected stopped session requiring refresh, got %+v", got)
	}
	if len(rec.failures) != 1 || !errors.Is(rec.failures[0], types.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", rec.failures)
	}
	if !call.isCancelled() {
		t.Fatalf("watch must be cancelled")
	}

	clk.Advance(time.Hour)
	if w.count() != 1 {
		t.Fatalf("permission denied must not be retried, got %d watches", w.count())
	}
}

func TestSampler_TimeoutRetriesAfterBackoff(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierHigh)

	first := w.last()
	first.onError(WatchError{Code: Timeout})
	if !first.isCancelled() {
		t.Fatalf("watch must be cancelled on timeout")
	}

	clk.Advance(4 * time.Second)
	if w.count() != 1 {
		t.Fatalf("restart must wait for the backoff")
	}

	clk.Advance(time.Second)
	if w.count() != 2 {
		t.Fatalf("expected restart after 5s backoff, got %d watches", w.count())
	}
	if got := s.Session(); got.Tier != types.TierHigh || got.RetryCount != 1 {
		t.Fatalf("expected high tier with retry 1, got %+v", got)
	}

	w.last().onError(WatchError{Code: Timeout})
	clk.Advance(5 * time.Second)
	w.last().onError(WatchError{Code: Timeout})

	if got := s.Session(); got.Tier != types.TierMedium {
		t.Fatalf("expected degrade to medium on 3rd timeout, got %s", got.Tier)
	}
	before := w.count()
	clk.Advance(5 * time.Second)
	if w.count() != before+1 || w.last().opts != DefaultTiers()[types.TierMedium] {
		t.Fatalf("expected medium watch after backoff")
	}
}

func TestSampler_TimeoutAtFallbackRequiresRefresh(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierFallback)

	for i := 0; i < 3; i++ {
		w.last().onError(WatchError{Code: Timeout})
		clk.Advance(5 * time.Second)
	}

	got := s.Session()
	if !got.ManualRefreshRequired || got.Running {
		t.Fatalf("expected manual refresh required, got %+v", got)
	}
	if len(rec.failures) != 1 || !errors.Is(rec.failures[0], types.ErrTimeout) {
		t.Fatalf("expected timeout exhaustion, got %v", rec.failures)
	}
	if w.count() != 3 {
		t.Fatalf("expected no restart after exhaustion, got %d watches", w.count())
	}
}

func TestSampler_UpgradesAfterSustainedSuccess(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierLow)

	w.last().onPosition(rawAt(clk.Now()))
	if s.Session().Tier != types.TierLow {
		t.Fatalf("must not upgrade before the success window")
	}

	clk.Advance(60 * time.Second)
	lowWatch := w.last()
	lowWatch.onPosition(rawAt(clk.Now()))

	if got := s.Session(); got.Tier != types.TierMedium {
		t.Fatalf("expected upgrade to medium, got %s", got.Tier)
	}
	if !lowWatch.isCancelled() {
		t.Fatalf("low tier watch must be cancelled on upgrade")
	}
	if len(rec.changes) != 1 || rec.changes[0] != [2]types.AccuracyTier{types.TierLow, types.TierMedium} {
		t.Fatalf("unexpected tier changes: %v", rec.changes)
	}
	if len(rec.samples) != 2 {
		t.Fatalf("expected both samples delivered, got %d", len(rec.samples))
	}

	// the window restarts at the new tier
	w.last().onPosition(rawAt(clk.Now()))
	if s.Session().Tier != types.TierMedium {
		t.Fatalf("upgrade must happen once per window")
	}
}

func TestSampler_FailureRestartsSuccessWindow(t *testing.T) {
	s, w, clk := newTestSampler(t, Handlers{})
	s.Start(types.TierMedium)

	clk.Advance(30 * time.Second)
	w.last().onError(WatchError{Code: PositionUnavailable})
	clk.Advance(10 * time.Second)
	w.last().onPosition(rawAt(clk.Now()))

	clk.Advance(50 * time.Second)
	w.last().onPosition(rawAt(clk.Now()))
	if s.Session().Tier != types.TierMedium {
		t.Fatalf("window must count from the last failure recovery")
	}

	clk.Advance(10 * time.Second)
	w.last().onPosition(rawAt(clk.Now()))
	if s.Session().Tier != types.TierHigh {
		t.Fatalf("expected upgrade after 60s without failures")
	}
}

func TestSampler_StopFromInsideHandler(t *testing.T) {
	var s *Sampler
	calls := 0
	s, w, clk := newTestSampler(t, Handlers{
		OnSample: func(models.Position) {
			calls++
			s.Stop()
		},
	})
	s.Start(types.TierHigh)

	call := w.last()
	call.onPosition(rawAt(clk.Now()))
	call.onPosition(rawAt(clk.Now().Add(time.Second)))

	if calls != 1 {
		t.Fatalf("expected exactly one sample callback, got %d", calls)
	}
	if !call.isCancelled() || s.Session().Running {
		t.Fatalf("sampler must be stopped and the watch cancelled")
	}
	s.Stop()
}

func TestSampler_DiscardsIncompletePosition(t *testing.T) {
	rec := &recorder{}
	s, w, clk := newTestSampler(t, rec.handlers())
	s.Start(types.TierHigh)

	lat := 1.0
	ts := clk.Now()
	w.last().onPosition(models.RawPosition{Latitude: &lat, Timestamp: &ts})

	if len(rec.samples) != 0 || s.Session().LastPosition != nil {
		t.Fatalf("incomplete position must be discarded")
	}
}

func TestSampler_RefreshRestartsAtHigh(t *testing.T) {
	rec := &recorder{}
	s, w, _ := newTestSampler(t, rec.handlers())
	s.Start(types.TierLow)
	w.last().onError(WatchError{Code: PermissionDenied})

	got := s.Refresh()
	if !got.Running || got.ManualRefreshRequired || got.Tier != types.TierHigh {
		t.Fatalf("unexpected session after refresh: %+v", got)
	}
	if w.count() != 2 {
		t.Fatalf("expected a new watch, got %d", w.count())
	}
}
