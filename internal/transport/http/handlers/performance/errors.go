package performancehandler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/performance"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

const retryAfterSeconds = 5

// writeError maps domain errors onto the API error taxonomy. Anything
// unrecognised is logged and reported as a 500 with the given code.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, fallbackCode string) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *performance.ValidationError
	switch {
	case errors.As(err, &verr):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
	case errors.Is(err, authz.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, performance.ErrKPINotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "kpi not found", requestID)
	case errors.Is(err, performance.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation period not found", requestID)
	case errors.Is(err, performance.ErrReviewNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", requestID)
	case errors.Is(err, performance.ErrPeriodNotOpen):
		api.Fail(w, http.StatusConflict, "invalid_state", "evaluation period is not open for scoring", requestID)
	case errors.Is(err, performance.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", "a closed period cannot be reactivated", requestID)
	case errors.Is(err, performance.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", "concurrent update, retry the request", requestID)
	case errors.Is(err, performance.ErrUnavailable):
		api.Unavailable(w, retryAfterSeconds, "performance store unavailable", requestID)
	case errors.Is(err, directory.ErrUnavailable):
		api.Unavailable(w, retryAfterSeconds, "employee directory unavailable", requestID)
	default:
		log.Error().Err(err).Str("requestId", requestID).Str("path", r.URL.Path).Msg("performance request failed")
		api.Fail(w, http.StatusInternalServerError, fallbackCode, "request failed", requestID)
	}
}
