package sampler

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// Watcher is the device geolocation primitive: a continuous position watch.
// Callbacks may arrive on any goroutine. The returned cancel func stops the watch.
type Watcher interface {
	Watch(opts WatchOptions, onPosition func(models.RawPosition), onError func(WatchError)) (cancel func())
}

type WatchOptions struct {
	EnableHighAccuracy bool
	MaximumAge         time.Duration
	Timeout            time.Duration
}

type WatchErrorCode string

const (
	PermissionDenied    WatchErrorCode = "PERMISSION_DENIED"
	PositionUnavailable WatchErrorCode = "POSITION_UNAVAILABLE"
	Timeout             WatchErrorCode = "TIMEOUT"
)

// WatchError is a classified failure reported by the Watcher.
type WatchError struct {
	Code    WatchErrorCode `json:"code"`
	Message string         `json:"message,omitempty"`
}

func (e WatchError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Handlers are notified outside of the sampler's lock, so calling Stop or Refresh
// from inside any of them is allowed. Nil handlers are skipped.
type Handlers struct {
	// OnSample receives every accepted position.
	OnSample func(models.Position)
	// OnTierChange is informational: accuracy was degraded or restored.
	OnTierChange func(from, to types.AccuracyTier)
	// OnFailure receives errors that need manual intervention:
	// types.ErrPermissionDenied or types.ErrManualRefreshRequired.
	OnFailure func(error)
}
