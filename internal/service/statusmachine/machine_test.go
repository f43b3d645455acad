package statusmachine

import (
	"errors"
	"testing"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

var allStatuses = []types.DeliveryStatus{
	types.StatusPending,
	types.StatusDriverAssigned,
	types.StatusOutForDelivery,
	types.StatusDelivered,
	types.StatusCancelled,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]types.DeliveryStatus]bool{
		{types.StatusPending, types.StatusDriverAssigned}:        true,
		{types.StatusDriverAssigned, types.StatusOutForDelivery}: true,
		{types.StatusOutForDelivery, types.StatusDelivered}:      true,
		{types.StatusPending, types.StatusCancelled}:             true,
		{types.StatusDriverAssigned, types.StatusCancelled}:      true,
		{types.StatusOutForDelivery, types.StatusCancelled}:      true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]types.DeliveryStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestApplyTransition_TerminalAlwaysFails(t *testing.T) {
	for _, terminal := range []types.DeliveryStatus{types.StatusDelivered, types.StatusCancelled} {
		for _, next := range allStatuses {
			got, err := ApplyTransition(terminal, next)
			if err == nil {
				t.Fatalf("ApplyTransition(%s, %s) must fail", terminal, next)
			}
			if got != terminal {
				t.Fatalf("status must stay %s on failure, got %s", terminal, got)
			}
		}
	}
}

func TestApplyTransition_NoSkipping(t *testing.T) {
	got, err := ApplyTransition(types.StatusPending, types.StatusOutForDelivery)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got != types.StatusPending {
		t.Fatalf("status must be unchanged, got %s", got)
	}

	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if ite.From != types.StatusPending || ite.To != types.StatusOutForDelivery {
		t.Fatalf("unexpected error payload: %+v", ite)
	}
}

func TestApplyTransition_CancelFromOutForDelivery(t *testing.T) {
	got, err := ApplyTransition(types.StatusOutForDelivery, types.StatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != types.StatusCancelled {
		t.Fatalf("got %s, want cancelled", got)
	}
}

func TestAllowed_ReturnsCopy(t *testing.T) {
	a := Allowed(types.StatusPending)
	if len(a) != 2 {
		t.Fatalf("expected 2 options from pending, got %v", a)
	}
	a[0] = types.StatusDelivered
	if !CanTransition(types.StatusPending, types.StatusDriverAssigned) {
		t.Fatalf("mutating Allowed result must not affect the table")
	}
	if len(Allowed(types.StatusDelivered)) != 0 {
		t.Fatalf("terminal status must have no options")
	}
}
