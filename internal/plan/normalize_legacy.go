package plan

import (
	"encoding/json"
	"io"

	"github.com/planfold/planfold/internal/blocktype"
)

// legacyBody is the predecessor endpoint's flat request shape.
type legacyBody struct {
	Mode   *string          `json:"mode"`
	Blocks []blockEntryBody `json:"blocks"`
}

// NormalizeLegacyBlocks parses the deprecated blocks-only request
// shape. Todo projections and idempotency did not exist on that
// endpoint, so todo entries are rejected rather than half-supported.
func NormalizeLegacyBlocks(userID, date string, r io.Reader) (*Command, error) {
	var body legacyBody
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, &ValidationError{Field: "body", Message: decodeMessage(err)}
	}

	cmd := &Command{UserID: userID, Date: date, Mode: ModeReplace}
	if body.Mode != nil {
		cmd.Mode = Mode(*body.Mode)
		if !ValidMode(cmd.Mode) {
			return nil, validationf("mode", "must be one of replace, append, merge")
		}
	}

	if len(body.Blocks) == 0 {
		return nil, validationf("blocks", "at least one block is required")
	}
	for i, e := range body.Blocks {
		if e.TypeID != nil && *e.TypeID == blocktype.TypeTodo {
			return nil, validationf(
				fieldAt("blocks", i, "typeId"),
				"todo entries are not supported on this endpoint; use the plan endpoint")
		}
	}

	if err := normalizeDay(cmd, &dayBody{Blocks: body.Blocks}, nil); err != nil {
		return nil, err
	}
	return cmd, nil
}
