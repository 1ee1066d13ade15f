package orders

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation: malformed request, rejected before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock always implies earlier reservations in the same
	// request were already rolled back.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	// ErrPaymentFailed is the aggregated client-visible payment failure,
	// raised only after the retry budget is exhausted.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrIntegrity marks an inconsistent ledger (e.g. compensation targeting
	// a vanished product). Logged loudly, never swallowed.
	ErrIntegrity = errors.New("ledger integrity fault")
)

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrPaymentFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
