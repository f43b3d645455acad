package types

import (
	"fmt"
	"strings"
)

// DeliveryStatus is the canonical lifecycle state of a delivery.
type DeliveryStatus string

func (s DeliveryStatus) String() string {
	return string(s)
}

const (
	StatusPending        DeliveryStatus = "pending"
	StatusDriverAssigned DeliveryStatus = "driver_assigned"
	StatusOutForDelivery DeliveryStatus = "out_for_delivery"
	StatusDelivered      DeliveryStatus = "delivered"
	StatusCancelled      DeliveryStatus = "cancelled"
)

// IsTerminal reports whether no further transition is accepted from s.
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is one of the canonical statuses.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusDriverAssigned, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// statusAliases maps every spelling seen from external systems to the canonical status.
// Keys are lower-cased with spaces and dashes folded into underscores.
var statusAliases = map[string]DeliveryStatus{
	"pending":          StatusPending,
	"placed":           StatusPending,
	"accepted":         StatusPending,
	"preparing":        StatusPending,
	"driver_assigned":  StatusDriverAssigned,
	"assigned":         StatusDriverAssigned,
	"ready_for_pickup": StatusDriverAssigned,
	"out_for_delivery": StatusOutForDelivery,
	"on_the_way":       StatusOutForDelivery,
	"en_route":         StatusOutForDelivery,
	"enroute":          StatusOutForDelivery,
	"picked_up":        StatusOutForDelivery,
	"in_transit":       StatusOutForDelivery,
	"delivered":        StatusDelivered,
	"completed":        StatusDelivered,
	"cancelled":        StatusCancelled,
	"canceled":         StatusCancelled,
}

// NormalizeDeliveryStatus converts an external status spelling into the canonical enum.
// It is the only place where raw status strings are interpreted.
func NormalizeDeliveryStatus(raw string) (DeliveryStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}
