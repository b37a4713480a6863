// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/bahikhata/bahikhata/internal/shared"
)

// Sentinel errors raised by the transport layer itself.
var (
	ErrBadRequest = errors.New("malformed request")
	ErrDuplicate  = errors.New("duplicate request")
)

// fieldCarrier is implemented by domain errors that expose RFC7807 extension members.
type fieldCarrier interface {
	ProblemFields() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var ext map[string]any
	var carrier fieldCarrier
	if errors.As(err, &carrier) {
		ext = carrier.ProblemFields()
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		ProblemWith(w, http.StatusNotFound, "Not Found", err.Error(), ext)
	case errors.Is(err, shared.ErrValidation), errors.Is(err, ErrBadRequest):
		ProblemWith(w, http.StatusBadRequest, "Validation Failed", err.Error(), ext)
	case errors.Is(err, shared.ErrConcurrentModification):
		if ext == nil {
			ext = map[string]any{}
		}
		ext["retryable"] = true
		w.Header().Set("Retry-After", "1")
		ProblemWith(w, http.StatusConflict, "Concurrent Modification", err.Error(), ext)
	case errors.Is(err, shared.ErrInvalidState):
		ProblemWith(w, http.StatusConflict, "Invalid State", err.Error(), ext)
	case errors.Is(err, ErrDuplicate), errors.Is(err, shared.ErrIdempotencyConflict):
		ProblemWith(w, http.StatusConflict, "Duplicate", err.Error(), ext)
	case errors.Is(err, shared.ErrRuleViolation):
		ProblemWith(w, http.StatusUnprocessableEntity, "Rule Violation", err.Error(), ext)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
