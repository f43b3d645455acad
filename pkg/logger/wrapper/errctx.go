package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx of the place the error was raised, so the
// caller that finally logs it still sees delivery_id, action and request_id.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string { return e.err.Error() }

func (e *errorWithLogCtx) Unwrap() error { return e.err }

// ErrorCtx returns ctx with the LogCtx carried by err merged in. Fields set where
// the error was raised win; blanks are filled from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if !errors.As(err, &e) || e == nil {
		return ctx
	}
	return context.WithValue(ctx, LogCtxKey, WithFallback(e.logCtx, fromCtx(ctx)))
}
