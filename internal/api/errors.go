package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/planfold/planfold/internal/plan"
)

var errUnauthenticated = errors.New("unauthenticated")

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON marshals v as the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and handler errors onto the wire taxonomy:
// validation 400, conflict 409, unauthenticated 401, anything else a
// generic 500 so internals never leak.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var vErr *plan.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "validation_error",
			Message: vErr.Message,
			Field:   vErr.Field,
		}})
		return
	}

	var cErr *plan.ConflictError
	if errors.As(err, &cErr) {
		writeJSON(w, http.StatusConflict, errorBody{Error: errorDetail{
			Code:    "conflict",
			Message: cErr.Message,
		}})
		return
	}

	if errors.Is(err, errUnauthenticated) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
			Code:    "unauthenticated",
			Message: "a verified X-User-ID header is required",
		}})
		return
	}

	log.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    "internal",
		Message: "internal server error",
	}})
}
