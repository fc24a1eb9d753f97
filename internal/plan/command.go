package plan

// Mode selects the write semantics applied to day-native blocks.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
	ModeMerge   Mode = "merge"
)

// ValidMode reports whether m is a supported write mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeReplace, ModeAppend, ModeMerge:
		return true
	}
	return false
}

// TodoUpsert is one normalized todo create-or-patch entry. Pointer
// fields distinguish "omitted" from "set to zero value": omitted fields
// are left untouched on patch and defaulted on create.
type TodoUpsert struct {
	ID          string
	ClientID    string
	Content     *string
	Description *string
	DueDate     *string
	SectionID   *string
	Priority    *int
	ParentID    *string
	Status      *string
	Order       *int
	Labels      []string // nil means not provided
	PillarID    *string
}

// NativeEntry is one normalized day-native block entry.
type NativeEntry struct {
	TypeID    string
	SectionID string
	Order     int
	Expanded  bool
	Title     string
	Subtitle  string
	Icon      string
	PillarID  *string
	Source    string
	Data      map[string]any
}

// TodoRef points a projection entry at a todo, either by its persisted
// id or by the clientId of an upsert in the same request. Exactly one
// side is set.
type TodoRef struct {
	ID       string
	ClientID string
}

// ProjectionEntry is one normalized todo-projection block entry. It
// repositions the referenced todo onto the plan's date; it never
// carries block data of its own.
type ProjectionEntry struct {
	SectionID string
	Order     int
	Ref       TodoRef
}

// Command is the fully normalized plan request. Everything downstream
// of the normalizer operates on this; the raw body is never seen again.
type Command struct {
	UserID         string
	Date           string
	Mode           Mode
	TodoUpserts    []TodoUpsert
	Natives        []NativeEntry
	Projections    []ProjectionEntry
	DeleteBlockIDs []string
}
