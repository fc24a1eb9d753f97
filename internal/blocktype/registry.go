// Package blocktype resolves block type identifiers to their data
// schemas. The plan engine treats it as a read-only collaborator: it
// never mutates the catalogue, only resolves types and validates
// payloads against them.
package blocktype

import (
	"errors"
	"fmt"

	"github.com/planfold/planfold/internal/model"
)

// TypeTodo is the reserved type id for todo-projection entries. It is
// never resolvable as a native block type.
const TypeTodo = "todo"

// ErrUnknownType is returned when a type id has no registered schema.
var ErrUnknownType = errors.New("unknown block type")

// Field kinds accepted in data payloads.
const (
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
	KindArray  = "array"
	KindObject = "object"
)

// Schema describes the data payload of one block type.
type Schema struct {
	TypeID         string
	DefaultSection string
	Required       map[string]string // field name -> kind
	Optional       map[string]string
}

// Registry resolves type identifiers to schemas.
type Registry interface {
	Resolve(typeID string) (*Schema, error)
}

// legacyAliases maps retired type ids to their replacements. Persisted
// blocks carrying one of these are swept on the next plan write, and
// requests using them are rejected.
var legacyAliases = map[string]string{
	"text":           "note",
	"diary":          "journal",
	"gratitude-list": "gratitude",
}

// disabledNative holds the "default native" types that are permanently
// rejected in this version.
var disabledNative = map[string]bool{
	"sleep": true,
	"wake":  true,
	"meal":  true,
	"break": true,
}

// IsLegacy reports whether typeID is a retired alias.
func IsLegacy(typeID string) bool {
	_, ok := legacyAliases[typeID]
	return ok
}

// IsDisabled reports whether typeID is a disabled default-native type.
func IsDisabled(typeID string) bool {
	return disabledNative[typeID]
}

// StaticRegistry is the built-in catalogue of block types.
type StaticRegistry struct {
	schemas map[string]*Schema
}

// NewStaticRegistry returns the registry with all built-in types.
func NewStaticRegistry() *StaticRegistry {
	types := []*Schema{
		{
			TypeID:         "note",
			DefaultSection: model.SectionMorning,
			Required:       map[string]string{"text": KindString},
			Optional:       map[string]string{"pinned": KindBool},
		},
		{
			TypeID:         "journal",
			DefaultSection: model.SectionEvening,
			Required:       map[string]string{"entry": KindString},
			Optional:       map[string]string{"mood": KindString, "tags": KindArray},
		},
		{
			TypeID:         "habit-tracker",
			DefaultSection: model.SectionMorning,
			Required:       map[string]string{"habits": KindArray},
			Optional:       map[string]string{"streak": KindNumber},
		},
		{
			TypeID:         "checklist",
			DefaultSection: model.SectionAfternoon,
			Required:       map[string]string{"items": KindArray},
		},
		{
			TypeID:         "quote",
			DefaultSection: model.SectionMorning,
			Required:       map[string]string{"text": KindString},
			Optional:       map[string]string{"author": KindString},
		},
		{
			TypeID:         "water-intake",
			DefaultSection: model.SectionAfternoon,
			Required:       map[string]string{"glasses": KindNumber},
			Optional:       map[string]string{"goal": KindNumber},
		},
		{
			TypeID:         "gratitude",
			DefaultSection: model.SectionEvening,
			Required:       map[string]string{"entries": KindArray},
		},
		{
			TypeID:         "focus",
			DefaultSection: model.SectionMorning,
			Required:       map[string]string{"intention": KindString},
			Optional:       map[string]string{"minutes": KindNumber},
		},
		{
			TypeID:         "reflection",
			DefaultSection: model.SectionEvening,
			Required:       map[string]string{"prompt": KindString},
			Optional:       map[string]string{"answer": KindString},
		},
	}

	m := make(map[string]*Schema, len(types))
	for _, s := range types {
		m[s.TypeID] = s
	}
	return &StaticRegistry{schemas: m}
}

// Resolve returns the schema for typeID, or ErrUnknownType.
func (r *StaticRegistry) Resolve(typeID string) (*Schema, error) {
	s, ok := r.schemas[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeID)
	}
	return s, nil
}

// ValidateData checks a data payload against the schema: every required
// field must be present with the right kind, and no field outside the
// schema is accepted.
func (s *Schema) ValidateData(data map[string]any) error {
	for field, kind := range s.Required {
		v, ok := data[field]
		if !ok {
			return fmt.Errorf("block type %s: missing required field %q", s.TypeID, field)
		}
		if err := checkKind(v, kind); err != nil {
			return fmt.Errorf("block type %s: field %q: %w", s.TypeID, field, err)
		}
	}
	for field, v := range data {
		if _, ok := s.Required[field]; ok {
			continue
		}
		kind, ok := s.Optional[field]
		if !ok {
			return fmt.Errorf("block type %s: unknown field %q", s.TypeID, field)
		}
		if err := checkKind(v, kind); err != nil {
			return fmt.Errorf("block type %s: field %q: %w", s.TypeID, field, err)
		}
	}
	return nil
}

// checkKind validates a decoded JSON value against a schema kind.
func checkKind(v any, kind string) error {
	var ok bool
	switch kind {
	case KindString:
		_, ok = v.(string)
	case KindNumber:
		_, ok = v.(float64)
	case KindBool:
		_, ok = v.(bool)
	case KindArray:
		_, ok = v.([]any)
	case KindObject:
		_, ok = v.(map[string]any)
	default:
		return fmt.Errorf("unsupported schema kind %q", kind)
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", kind, v)
	}
	return nil
}
