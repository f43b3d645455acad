package types

import "errors"

// Geolocation
var (
	ErrPermissionDenied      = errors.New("geolocation permission denied")
	ErrPositionUnavailable   = errors.New("position unavailable")
	ErrTimeout               = errors.New("geolocation timeout")
	ErrManualRefreshRequired = errors.New("manual refresh required")
	ErrInvalidPosition       = errors.New("invalid position")
)

// Delivery
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown delivery status")
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrDeliveryTerminal  = errors.New("delivery is in a terminal status")
)

// Transport
var (
	ErrSessionExpired = errors.New("session expired")
	ErrPublishFailed  = errors.New("failed to publish location")
	ErrChannelClosed  = errors.New("tracking channel closed")
	ErrUnauthorized   = errors.New("unauthorized")
)

var ErrInvalidRole = errors.New("invalid role")

var ErrForbidden = errors.New("action forbidden")
