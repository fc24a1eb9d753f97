package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/planfold/planfold/internal/blocktype"
	"github.com/planfold/planfold/internal/model"
)

// Field length limits for todo upserts and block entries.
const (
	maxContentLen     = 500
	maxDescriptionLen = 2000
	maxLabelLen       = 64
	maxTitleLen       = 200
	maxSubtitleLen    = 200
	maxIconLen        = 64
)

// Wire shapes. Every field is a pointer (or slice) so presence can be
// told apart from the zero value, and decoding is strict: unknown
// fields anywhere in the body are rejected, deliberately, so schema
// drift in API clients fails loudly instead of being dropped.
type requestBody struct {
	Mode       *string         `json:"mode"`
	Primitives *primitivesBody `json:"primitives"`
	Day        *dayBody        `json:"day"`
}

type primitivesBody struct {
	Todos *todosBody `json:"todos"`
}

type todosBody struct {
	Upsert []todoUpsertBody `json:"upsert"`
}

type dayBody struct {
	Blocks         []blockEntryBody `json:"blocks"`
	DeleteBlockIDs []string         `json:"deleteBlockIds"`
}

type todoUpsertBody struct {
	ID          *string  `json:"id"`
	ClientID    *string  `json:"clientId"`
	Content     *string  `json:"content"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"dueDate"`
	SectionID   *string  `json:"sectionId"`
	Priority    *int     `json:"priority"`
	ParentID    *string  `json:"parentId"`
	Status      *string  `json:"status"`
	Order       *int     `json:"order"`
	Labels      []string `json:"labels"`
	PillarID    *string  `json:"pillarId"`
}

type blockEntryBody struct {
	TypeID    *string         `json:"typeId"`
	SectionID *string         `json:"sectionId"`
	Order     *int            `json:"order"`
	Expanded  *bool           `json:"expanded"`
	Title     *string         `json:"title"`
	Subtitle  *string         `json:"subtitle"`
	Icon      *string         `json:"icon"`
	PillarID  *string         `json:"pillarId"`
	Source    *string         `json:"source"`
	Data      map[string]any  `json:"data"`
	TodoRef   *todoRefBody    `json:"todoRef"`
}

type todoRefBody struct {
	ID       *string `json:"id"`
	ClientID *string `json:"clientId"`
}

// Normalize parses and validates an untrusted request body into a
// Command. It is the only place malformed input is rejected; every
// component after it may assume an internally consistent command.
func Normalize(userID, date string, r io.Reader) (*Command, error) {
	var body requestBody
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, &ValidationError{Field: "body", Message: decodeMessage(err)}
	}
	// A second document after the first is as malformed as a bad one.
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, validationf("body", "unexpected trailing content")
	}

	cmd := &Command{UserID: userID, Date: date, Mode: ModeReplace}

	if body.Mode != nil {
		cmd.Mode = Mode(*body.Mode)
		if !ValidMode(cmd.Mode) {
			return nil, validationf("mode", "must be one of replace, append, merge")
		}
	}

	if body.Primitives != nil && body.Primitives.Todos != nil {
		upserts, err := normalizeUpserts(body.Primitives.Todos.Upsert)
		if err != nil {
			return nil, err
		}
		cmd.TodoUpserts = upserts
	}

	clientIDs := make(map[string]bool, len(cmd.TodoUpserts))
	for _, u := range cmd.TodoUpserts {
		if u.ClientID != "" {
			clientIDs[u.ClientID] = true
		}
	}

	if body.Day != nil {
		if err := normalizeDay(cmd, body.Day, clientIDs); err != nil {
			return nil, err
		}
	}

	if len(cmd.TodoUpserts) == 0 && len(cmd.Natives) == 0 && len(cmd.Projections) == 0 {
		return nil, validationf("body", "at least one todo upsert or day block is required")
	}

	return cmd, nil
}

func normalizeUpserts(entries []todoUpsertBody) ([]TodoUpsert, error) {
	seenIDs := make(map[string]bool, len(entries))
	seenClientIDs := make(map[string]bool, len(entries))
	upserts := make([]TodoUpsert, 0, len(entries))

	for i, e := range entries {
		path := fmt.Sprintf("primitives.todos.upsert[%d]", i)

		u := TodoUpsert{
			Content:     e.Content,
			Description: e.Description,
			DueDate:     e.DueDate,
			SectionID:   e.SectionID,
			Priority:    e.Priority,
			ParentID:    e.ParentID,
			Status:      e.Status,
			Order:       e.Order,
			PillarID:    e.PillarID,
		}
		if e.ID != nil {
			u.ID = strings.TrimSpace(*e.ID)
		}
		if e.ClientID != nil {
			u.ClientID = strings.TrimSpace(*e.ClientID)
		}

		if u.ID == "" && u.ClientID == "" {
			return nil, validationf(path, "an id or clientId is required")
		}
		if u.ID != "" {
			if seenIDs[u.ID] {
				return nil, validationf(path+".id", "duplicate todo id %q in request", u.ID)
			}
			seenIDs[u.ID] = true
		}
		if u.ClientID != "" {
			if seenClientIDs[u.ClientID] {
				return nil, validationf(path+".clientId", "duplicate clientId %q in request", u.ClientID)
			}
			seenClientIDs[u.ClientID] = true
		}

		if u.Content != nil && len(*u.Content) > maxContentLen {
			return nil, validationf(path+".content", "must be at most %d characters", maxContentLen)
		}
		if u.Content != nil && strings.TrimSpace(*u.Content) == "" {
			return nil, validationf(path+".content", "must not be blank")
		}
		if u.Description != nil && len(*u.Description) > maxDescriptionLen {
			return nil, validationf(path+".description", "must be at most %d characters", maxDescriptionLen)
		}
		if u.DueDate != nil {
			if _, err := time.Parse("2006-01-02", *u.DueDate); err != nil {
				return nil, validationf(path+".dueDate", "must be a YYYY-MM-DD date")
			}
		}
		if u.SectionID != nil && !model.ValidSection(*u.SectionID) {
			return nil, validationf(path+".sectionId", "unknown section %q", *u.SectionID)
		}
		if u.Priority != nil && (*u.Priority < model.PriorityMin || *u.Priority > model.PriorityMax) {
			return nil, validationf(path+".priority", "must be between %d and %d", model.PriorityMin, model.PriorityMax)
		}
		if u.Status != nil && *u.Status != model.TodoStatusActive && *u.Status != model.TodoStatusCompleted {
			return nil, validationf(path+".status", "must be active or completed")
		}

		if e.Labels != nil {
			labels, err := dedupLabels(e.Labels, path+".labels")
			if err != nil {
				return nil, err
			}
			u.Labels = labels
		}

		upserts = append(upserts, u)
	}

	return upserts, nil
}

func normalizeDay(cmd *Command, day *dayBody, clientIDs map[string]bool) error {
	seenProjectionRefs := make(map[string]bool)

	for i, e := range day.Blocks {
		path := fmt.Sprintf("day.blocks[%d]", i)

		if e.TypeID == nil || *e.TypeID == "" {
			return validationf(path+".typeId", "is required")
		}
		if e.SectionID == nil {
			return validationf(path+".sectionId", "is required")
		}
		if !model.ValidSection(*e.SectionID) {
			return validationf(path+".sectionId", "unknown section %q", *e.SectionID)
		}
		if e.Order == nil {
			return validationf(path+".order", "is required")
		}

		typeID := *e.TypeID

		if typeID == blocktype.TypeTodo {
			p, err := normalizeProjection(e, path, clientIDs)
			if err != nil {
				return err
			}
			refKey := "id:" + p.Ref.ID
			if p.Ref.ClientID != "" {
				refKey = "clientId:" + p.Ref.ClientID
			}
			if seenProjectionRefs[refKey] {
				return validationf(path+".todoRef", "duplicate projection target")
			}
			seenProjectionRefs[refKey] = true
			cmd.Projections = append(cmd.Projections, *p)
			continue
		}

		if blocktype.IsLegacy(typeID) {
			return validationf(path+".typeId", "type %q is a retired alias and no longer accepted", typeID)
		}
		if blocktype.IsDisabled(typeID) {
			return validationf(path+".typeId", "type %q is disabled", typeID)
		}
		if e.TodoRef != nil {
			return validationf(path+".todoRef", "only valid on todo entries")
		}

		n := NativeEntry{
			TypeID:    typeID,
			SectionID: *e.SectionID,
			Order:     *e.Order,
			Source:    model.BlockSourceUser,
			Data:      e.Data,
			PillarID:  e.PillarID,
		}
		if n.Data == nil {
			n.Data = map[string]any{}
		}
		if e.Expanded != nil {
			n.Expanded = *e.Expanded
		}
		if e.Title != nil {
			if len(*e.Title) > maxTitleLen {
				return validationf(path+".title", "must be at most %d characters", maxTitleLen)
			}
			n.Title = *e.Title
		}
		if e.Subtitle != nil {
			if len(*e.Subtitle) > maxSubtitleLen {
				return validationf(path+".subtitle", "must be at most %d characters", maxSubtitleLen)
			}
			n.Subtitle = *e.Subtitle
		}
		if e.Icon != nil {
			if len(*e.Icon) > maxIconLen {
				return validationf(path+".icon", "must be at most %d characters", maxIconLen)
			}
			n.Icon = *e.Icon
		}
		if e.Source != nil {
			if !model.ValidBlockSource(*e.Source) {
				return validationf(path+".source", "unknown source %q", *e.Source)
			}
			n.Source = *e.Source
		}

		cmd.Natives = append(cmd.Natives, n)
	}

	if len(day.DeleteBlockIDs) > 0 {
		if cmd.Mode != ModeAppend {
			return validationf("day.deleteBlockIds", "only valid with mode=append")
		}
		seen := make(map[string]bool, len(day.DeleteBlockIDs))
		for i, id := range day.DeleteBlockIDs {
			if id == "" {
				return validationf(fmt.Sprintf("day.deleteBlockIds[%d]", i), "must not be empty")
			}
			if seen[id] {
				return validationf(fmt.Sprintf("day.deleteBlockIds[%d]", i), "duplicate id %q", id)
			}
			seen[id] = true
		}
		cmd.DeleteBlockIDs = day.DeleteBlockIDs
	}

	return nil
}

func normalizeProjection(e blockEntryBody, path string, clientIDs map[string]bool) (*ProjectionEntry, error) {
	if e.TodoRef == nil {
		return nil, validationf(path+".todoRef", "is required for todo entries")
	}
	// Projection entries carry no block payload of their own.
	if e.Data != nil || e.Title != nil || e.Subtitle != nil || e.Icon != nil ||
		e.PillarID != nil || e.Source != nil || e.Expanded != nil {
		return nil, validationf(path, "todo entries accept only sectionId, order, and todoRef")
	}

	ref := TodoRef{}
	if e.TodoRef.ID != nil {
		ref.ID = strings.TrimSpace(*e.TodoRef.ID)
	}
	if e.TodoRef.ClientID != nil {
		ref.ClientID = strings.TrimSpace(*e.TodoRef.ClientID)
	}
	if (ref.ID == "") == (ref.ClientID == "") {
		return nil, validationf(path+".todoRef", "exactly one of id or clientId is required")
	}
	if ref.ClientID != "" && !clientIDs[ref.ClientID] {
		return nil, validationf(path+".todoRef.clientId",
			"%q does not match any todo upsert in this request", ref.ClientID)
	}

	return &ProjectionEntry{
		SectionID: *e.SectionID,
		Order:     *e.Order,
		Ref:       ref,
	}, nil
}

// dedupLabels validates labels and removes duplicates case-sensitively,
// preserving first-seen order.
func dedupLabels(labels []string, path string) ([]string, error) {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if l == "" {
			return nil, validationf(fmt.Sprintf("%s[%d]", path, i), "must not be empty")
		}
		if len(l) > maxLabelLen {
			return nil, validationf(fmt.Sprintf("%s[%d]", path, i), "must be at most %d characters", maxLabelLen)
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// decodeMessage turns json decoding errors into readable messages
// without leaking Go type names where avoidable.
func decodeMessage(err error) string {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return fmt.Sprintf("malformed JSON at offset %d", syn.Offset)
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		if typ.Field != "" {
			return fmt.Sprintf("invalid type for field %q", typ.Field)
		}
		return "invalid type in request body"
	}
	if err == io.EOF {
		return "request body is empty"
	}
	// DisallowUnknownFields errors arrive as plain errors naming the field.
	return err.Error()
}
