// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors. Services wrap these with context using fmt.Errorf("...: %w", ...).
var (
	ErrAccessDenied           = errors.New("access denied")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrOutOfSequence          = errors.New("clue is not the current clue for this hunt")
	ErrConflict               = errors.New("conflict")
	ErrPaymentNotConfirmed    = errors.New("payment not confirmed")
	ErrDeploymentPrecondition = errors.New("deployment precondition failed")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrLockBusy               = errors.New("another request for this hunt is in flight")
)

// Status maps an error, possibly wrapped, to the HTTP status the API returns for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDeploymentPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutOfSequence), errors.Is(err, ErrConflict), errors.Is(err, ErrLockBusy):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentNotConfirmed):
		return http.StatusAccepted
	case errors.Is(err, ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for the error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDeploymentPrecondition):
		return "deployment_precondition_failed"
	case errors.Is(err, ErrOutOfSequence):
		return "out_of_sequence"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrLockBusy):
		return "busy"
	case errors.Is(err, ErrPaymentNotConfirmed):
		return "payment_not_confirmed"
	case errors.Is(err, ErrGatewayUnavailable):
		return "gateway_unavailable"
	default:
		return "internal"
	}
}
