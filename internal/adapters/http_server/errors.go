package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"hotel_listings/internal/domain"
)

type problem struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Status  int            `json:"status"`
	Detail  string         `json:"detail,omitempty"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, code, detail string, details map[string]any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Code: code, Details: details}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the error taxonomy onto problem responses. Anything outside
// it is logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	var se *domain.StateError
	switch {
	case errors.As(err, &ve):
		var details map[string]any
		if ve.Field != "" {
			details = map[string]any{"field": ve.Field}
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "VALIDATION_ERROR", ve.Message, details)
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "FORBIDDEN", "Permission denied", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "NOT_FOUND", "Hotel not found", nil)
	case errors.As(err, &se):
		writeProblem(w, http.StatusConflict, "Conflict", "INVALID_STATE", se.Error(), map[string]any{
			"auditStatus":  se.State.Audit,
			"onlineStatus": se.State.Online,
			"updateStatus": se.State.Update,
		})
	case errors.Is(err, domain.ErrInvalidState):
		writeProblem(w, http.StatusConflict, "Conflict", "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "CONFLICT", "listing was modified concurrently, retry", nil)
	default:
		log.Error().Err(err).Str("route", routePattern(r)).Str("method", r.Method).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "INTERNAL_ERROR", "internal error", nil)
	}
}
