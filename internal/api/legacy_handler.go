package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/plan"
)

// Deprecation signalling for the predecessor blocks endpoint.
const (
	legacySunset    = "Sat, 31 Jan 2026 00:00:00 GMT"
	legacySuccessor = "/v1/days/{date}/plan"
)

// handleLegacyBlocksWrite serves the deprecated predecessor endpoint:
// day-native blocks only, no todo primitives, no idempotency. It stays
// alive for old clients with its original flat response shape, plus
// deprecation headers pointing at the plan endpoint.
func (s *Server) handleLegacyBlocksWrite(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Deprecation", "true")
	w.Header().Set("Sunset", legacySunset)
	w.Header().Set("Link", fmt.Sprintf("<%s>; rel=\"successor-version\"", legacySuccessor))

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

	cmd, err := plan.NormalizeLegacyBlocks(userID, date, r.Body)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	result, err := s.engine.Apply(r.Context(), cmd, "")
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var envelope plan.Envelope
	if err := json.Unmarshal(result.Body, &envelope); err != nil {
		writeError(w, s.log, err)
		return
	}

	var blocks []model.DayBlock
	for _, section := range envelope.Day.Sections {
		blocks = append(blocks, section.Blocks...)
	}
	if blocks == nil {
		blocks = []model.DayBlock{}
	}

	writeJSON(w, result.StatusCode, map[string]any{
		"date":   date,
		"mode":   cmd.Mode,
		"blocks": blocks,
	})
}
