package handler

import (
	"errors"
	"net/http"

	t "github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/statusmachine"
)

// errorResponse writes {"error": message}. A failed write means the client is gone.
func errorResponse(w http.ResponseWriter, status int, message any) {
	_ = writeJSON(w, status, envelope{"error": message}, nil)
}

// failedValidationResponse returns 422 with the per-field messages.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 for bodies that could not be decoded.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// serviceErrorResponse writes err with the status GetCode assigns to it.
// Internal failures are reported without details.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	code := GetCode(err)
	if code == http.StatusInternalServerError {
		errorResponse(w, code, "the server encountered a problem and could not process your request")
		return
	}

	var transition *statusmachine.InvalidTransitionError
	if errors.As(err, &transition) {
		errorResponse(w, code, envelope{
			"message": t.ErrInvalidTransition.Error(),
			"from":    transition.From,
			"to":      transition.To,
		})
		return
	}

	errorResponse(w, code, publicMessage(err))
}

var publicErrors = []error{
	t.ErrDeliveryNotFound,
	t.ErrDeliveryTerminal,
	t.ErrUnknownStatus,
	t.ErrInvalidPosition,
	t.ErrForbidden,
	t.ErrSessionExpired,
	t.ErrUnauthorized,
}

// publicMessage hides the operation chain and returns the domain error text.
func publicMessage(err error) string {
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
