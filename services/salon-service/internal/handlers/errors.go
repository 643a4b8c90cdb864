package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/services/salon-service/internal/booking"
	"github.com/hawosalon/salon/services/salon-service/internal/reviews"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

// writeError maps domain and store errors onto the JSON error envelope.
// Anything unrecognised is logged and answered with a 500 that hides the
// cause.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteFieldErrors(w, verr.fields)
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, httpx.CodeForbidden, err.Error())
	case errors.Is(err, booking.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeConflict, err.Error())
	case errors.Is(err, reviews.ErrDuplicate), errors.Is(err, store.ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeConflict, err.Error())
	case errors.Is(err, booking.ErrAlreadyPast):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeAlreadyPast, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, reviews.ErrNotCompleted):
		httpx.WriteError(w, http.StatusConflict, httpx.CodeInvalidTransition, err.Error())
	case errors.Is(err, booking.ErrInvalidStatus):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidStatus, err.Error())
	case errors.Is(err, booking.ErrInvalidInterval), errors.Is(err, reviews.ErrInvalidRating):
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeValidation, err.Error())
	case errors.Is(err, booking.ErrOutsideHours):
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.CodeOutsideHours, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
}
