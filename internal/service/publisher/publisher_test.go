package publisher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

type pushCall struct {
	deliveryID string
	pos        models.Position
	at         time.Time
}

type fakePusher struct {
	clk clock.Clock

	mu    sync.Mutex
	calls []pushCall
	err   error
	block chan struct{}
}

func (f *fakePusher) PushLocation(ctx context.Context, deliveryID string, pos models.Position) error {
	f.mu.Lock()
	f.calls = append(f.calls, pushCall{deliveryID: deliveryID, pos: pos, at: f.clk.Now()})
	err, block := f.err, f.block
	f.mu.Unlock()

	if block != nil {
		close(block)
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakePusher) sent() []pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pushCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func posAt(clk clock.Clock, lat float64) models.Position {
	return models.Position{Latitude: lat, Longitude: 76.88, Accuracy: 5, Timestamp: clk.Now()}
}

func newTestPublisher(cfg Config) (*Publisher, *fakePusher, *clock.Fake) {
	clk := clock.NewFake(time.Unix(1700000000, 0))
	pusher := &fakePusher{clk: clk}
	return New(pusher, clk, cfg, logger.Nop()), pusher, clk
}

func TestPublisher_LeadingThenTrailing(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	p.Attach("D1")

	p.Accept(posAt(clk, 1))
	p.Wait()
	if got := pusher.sent(); len(got) != 1 || got[0].pos.Latitude != 1 {
		t.Fatalf("first sample must be sent immediately, got %+v", got)
	}

	clk.Advance(3 * time.Second)
	p.Accept(posAt(clk, 2))
	clk.Advance(3 * time.Second)
	p.Accept(posAt(clk, 3))
	p.Wait()
	if len(pusher.sent()) != 1 {
		t.Fatalf("samples inside the window must not be sent immediately")
	}

	clk.Advance(4 * time.Second)
	p.Wait()
	got := pusher.sent()
	if len(got) != 2 || got[1].pos.Latitude != 3 {
		t.Fatalf("expected trailing send of the latest sample, got %+v", got)
	}
	if got[1].deliveryID != "D1" {
		t.Fatalf("unexpected delivery id %q", got[1].deliveryID)
	}

	// an empty window closes without a send
	clk.Advance(10 * time.Second)
	p.Wait()
	if len(pusher.sent()) != 2 {
		t.Fatalf("empty window must not send")
	}

	p.Accept(posAt(clk, 4))
	p.Wait()
	if got := pusher.sent(); len(got) != 3 || got[2].pos.Latitude != 4 {
		t.Fatalf("sample after an idle window must be sent immediately, got %+v", got)
	}
}

func TestPublisher_NeverTwoSendsWithinWindow(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	p.Attach("D1")

	for i := 0; i < 45; i++ {
		p.Accept(posAt(clk, float64(i%90)))
		p.Wait()
		clk.Advance(time.Second)
		p.Wait()
	}

	got := pusher.sent()
	if len(got) < 4 {
		t.Fatalf("expected periodic sends, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if gap := got[i].at.Sub(got[i-1].at); gap < 10*time.Second {
			t.Fatalf("sends %d and %d only %s apart", i-1, i, gap)
		}
	}
}

func TestPublisher_TrailingOnlySendsLatest(t *testing.T) {
	p, pusher, clk := newTestPublisher(Config{Window: 10 * time.Second, Leading: false})
	p.Attach("D1")

	for _, lat := range []float64{1, 2, 3} {
		p.Accept(posAt(clk, lat))
		clk.Advance(3 * time.Second)
	}
	p.Wait()
	if len(pusher.sent()) != 0 {
		t.Fatalf("no send expected before the window closes")
	}

	clk.Advance(time.Second)
	p.Wait()
	got := pusher.sent()
	if len(got) != 1 || got[0].pos.Latitude != 3 {
		t.Fatalf("expected one send carrying the last sample, got %+v", got)
	}
}

func TestPublisher_DropsInvalidPositions(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	p.Attach("D1")

	p.Accept(models.Position{Latitude: math.NaN(), Longitude: 1, Accuracy: 1, Timestamp: clk.Now()})
	p.Accept(models.Position{Latitude: 1, Longitude: 1, Accuracy: 1})
	clk.Advance(time.Minute)
	p.Wait()

	if len(pusher.sent()) != 0 {
		t.Fatalf("invalid positions must never be sent")
	}
}

func TestPublisher_NoSendWhileDetached(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())

	p.Accept(posAt(clk, 1))
	p.Wait()
	if len(pusher.sent()) != 0 {
		t.Fatalf("must not send before attach")
	}

	p.Attach("D1")
	p.Accept(posAt(clk, 2))
	p.Wait()
	p.Accept(posAt(clk, 3))
	p.Detach()
	clk.Advance(time.Minute)
	p.Accept(posAt(clk, 4))
	p.Wait()

	got := pusher.sent()
	if len(got) != 1 || got[0].pos.Latitude != 2 {
		t.Fatalf("detach must cancel the pending trailing send, got %+v", got)
	}
}

func TestPublisher_DetachCancelsInflightSend(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	started := make(chan struct{})
	pusher.block = started
	p.Attach("D1")

	p.Accept(posAt(clk, 1))
	<-started
	p.Detach()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("in-flight send was not cancelled by detach")
	}
}

func TestPublisher_SessionExpiredEscalates(t *testing.T) {
	var expired []string
	cfg := DefaultConfig()
	cfg.OnSessionExpired = func(id string) { expired = append(expired, id) }

	p, pusher, clk := newTestPublisher(cfg)
	pusher.err = fmt.Errorf("remote: %w", types.ErrSessionExpired)
	p.Attach("D7")

	p.Accept(posAt(clk, 1))
	p.Wait()

	if len(expired) != 1 || expired[0] != "D7" {
		t.Fatalf("expected session expired signal for D7, got %v", expired)
	}
	if len(pusher.sent()) != 1 {
		t.Fatalf("session expiry must not be retried, got %d sends", len(pusher.sent()))
	}
}

func TestPublisher_FailureIsDroppedAndSuperseded(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	pusher.err = errors.New("connection refused")
	p.Attach("D1")

	p.Accept(posAt(clk, 1))
	p.Wait()

	pusher.mu.Lock()
	pusher.err = nil
	pusher.mu.Unlock()

	clk.Advance(2 * time.Second)
	p.Accept(posAt(clk, 2))
	clk.Advance(8 * time.Second)
	p.Wait()

	got := pusher.sent()
	if len(got) != 2 || got[0].pos.Latitude != 1 || got[1].pos.Latitude != 2 {
		t.Fatalf("failed send must not be retried, got %+v", got)
	}
}

func TestPublisher_AttachOtherDeliveryResets(t *testing.T) {
	p, pusher, clk := newTestPublisher(DefaultConfig())
	p.Attach("D1")
	p.Accept(posAt(clk, 1))
	p.Wait()
	p.Accept(posAt(clk, 2))

	p.Attach("D2")
	p.Accept(posAt(clk, 3))
	clk.Advance(time.Minute)
	p.Wait()

	got := pusher.sent()
	if len(got) != 2 {
		t.Fatalf("expected 2 sends, got %+v", got)
	}
	if got[0].deliveryID != "D1" || got[1].deliveryID != "D2" || got[1].pos.Latitude != 3 {
		t.Fatalf("unexpected sends: %+v", got)
	}
}
