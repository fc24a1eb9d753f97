package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planfold/planfold/internal/plan"
)

// handlePlanWrite is the single write endpoint: it atomically upserts
// todo primitives, reconciles day-native blocks, repositions projected
// todos, and returns the assembled day view.
func (s *Server) handlePlanWrite(w http.ResponseWriter, r *http.Request) {
	userID, err := s.identity.Resolve(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	clientKey := r.Header.Get("Idempotency-Key")
	if len(clientKey) > plan.MaxIdempotencyKeyLen {
		writeError(w, s.log, &plan.ValidationError{
			Field:   "Idempotency-Key",
			Message: "must be at most 200 characters",
		})
		return
	}

	cmd, err := plan.Normalize(userID, date, r.Body)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	result, err := s.engine.Apply(r.Context(), cmd, clientKey)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	if clientKey != "" {
		w.Header().Set("Idempotency-Key", clientKey)
	}
	if result.Replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}

// handleDayRead returns the assembled day view without mutating.
func (s *Server) handleDayRead(w http.ResponseWriter, r *http.Request) {
	userID, err := s.identity.Resolve(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	sections, err := s.engine.ReadDay(r.Context(), userID, date)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date": date,
		"day":  map[string]any{"sections": sections},
	})
}

// parseDate validates the date path parameter.
func parseDate(raw string) (string, error) {
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", &plan.ValidationError{Field: "date", Message: "must be a YYYY-MM-DD date"}
	}
	return raw, nil
}
