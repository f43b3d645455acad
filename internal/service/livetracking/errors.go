package livetracking

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// ChannelError is a classified live tracking failure.
type ChannelError struct {
	Reason types.ChannelErrorReason
	Err    error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tracking channel: %s", e.Reason)
	}
	return fmt.Sprintf("tracking channel: %s: %v", e.Reason, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func NewChannelError(reason types.ChannelErrorReason, err error) *ChannelError {
	return &ChannelError{Reason: reason, Err: err}
}

// Classify turns any transport error into a ChannelError.
func Classify(err error) *ChannelError {
	var ce *ChannelError
	if errors.As(err, &ce) {
		return ce
	}

	var netErr net.Error
	switch {
	case errors.Is(err, types.ErrUnauthorized), errors.Is(err, types.ErrSessionExpired):
		return NewChannelError(types.ReasonAuthFailed, err)
	case errors.Is(err, types.ErrChannelClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.As(err, &netErr):
		return NewChannelError(types.ReasonConnectionLost, err)
	default:
		return NewChannelError(types.ReasonUnknown, err)
	}
}
