// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/receivables/internal/shared"
)

// ErrMalformedBody is returned by DecodeJSON when the body cannot be parsed.
var ErrMalformedBody = errors.New("malformed request body")

// RespondError maps domain errors to HTTP responses using RFC7807.
// Misconfiguration and internal faults never expose their detail.
func RespondError(w http.ResponseWriter, err error) {
	var failure *shared.Failure
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, ErrMalformedBody):
		Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.ErrIdempotencyConflict.Error())
	case errors.As(err, &failure):
		switch failure.Kind {
		case shared.KindNotFound:
			Problem(w, http.StatusNotFound, "Not Found", failure.Error())
		case shared.KindInvalidInput:
			Problem(w, http.StatusBadRequest, "Invalid Request", failure.Reason)
		case shared.KindInvalidState, shared.KindRuleViolation:
			Problem(w, http.StatusBadRequest, "Rejected", failure.Reason)
		default:
			Problem(w, http.StatusInternalServerError, "Internal Error", "the request could not be processed")
		}
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "the request could not be processed")
	}
}

// StatusOf returns the status RespondError would write for err.
func StatusOf(err error) int {
	switch shared.KindOf(err) {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindInvalidInput, shared.KindInvalidState, shared.KindRuleViolation:
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
