package wrap

import (
	"context"
	"errors"
)

// Error attaches the current LogCtx from ctx to err.
// An already wrapped error gets its LogCtx refreshed instead of being wrapped twice.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return &errorWithLogCtx{err: err, logCtx: WithFallback(fromCtx(ctx), e.logCtx)}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}

// WithFallback fills empty fields of lc from fallback.
func WithFallback(lc, fallback LogCtx) LogCtx {
	if lc.Action == "" {
		lc.Action = fallback.Action
	}
	if lc.UserID == "" {
		lc.UserID = fallback.UserID
	}
	if lc.RequestID == "" {
		lc.RequestID = fallback.RequestID
	}
	if lc.DeliveryID == "" {
		lc.DeliveryID = fallback.DeliveryID
	}
	return lc
}
