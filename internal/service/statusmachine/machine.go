// Package statusmachine validates and applies delivery status transitions.
// It holds no state; callers own the current status.
package statusmachine

import (
	"fmt"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// validTransitions defines the allowed edges. Terminal statuses have no entry.
var validTransitions = map[types.DeliveryStatus][]types.DeliveryStatus{
	types.StatusPending:        {types.StatusDriverAssigned, types.StatusCancelled},
	types.StatusDriverAssigned: {types.StatusOutForDelivery, types.StatusCancelled},
	types.StatusOutForDelivery: {types.StatusDelivered, types.StatusCancelled},
}

// InvalidTransitionError carries both ends of a rejected transition.
type InvalidTransitionError struct {
	From types.DeliveryStatus
	To   types.DeliveryStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", types.ErrInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return types.ErrInvalidTransition
}

// CanTransition reports whether current -> next is an edge of the lifecycle.
func CanTransition(current, next types.DeliveryStatus) bool {
	for _, allowed := range validTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ApplyTransition returns next when the transition is valid. On failure it returns
// current unchanged together with an *InvalidTransitionError.
func ApplyTransition(current, next types.DeliveryStatus) (types.DeliveryStatus, error) {
	if !CanTransition(current, next) {
		return current, &InvalidTransitionError{From: current, To: next}
	}
	return next, nil
}

// Allowed lists the statuses reachable from current in one step.
func Allowed(current types.DeliveryStatus) []types.DeliveryStatus {
	out := make([]types.DeliveryStatus, len(validTransitions[current]))
	copy(out, validTransitions[current])
	return out
}
