package model

import "time"

// Block source tags.
const (
	BlockSourceTemplate = "template"
	BlockSourceUser     = "user"
	BlockSourceClawdbot = "clawdbot"
	BlockSourceAutoSync = "auto-sync"
)

// ValidBlockSource reports whether s is a recognized source tag.
func ValidBlockSource(s string) bool {
	switch s {
	case BlockSourceTemplate, BlockSourceUser, BlockSourceClawdbot, BlockSourceAutoSync:
		return true
	}
	return false
}

// Block is a persisted day-native content unit attached to one
// (user, date) pair. Its Data payload is validated against the block
// type's schema before every write.
type Block struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"userId" db:"user_id"`
	Date      string         `json:"date" db:"date"` // date-only, YYYY-MM-DD
	TypeID    string         `json:"typeId" db:"type_id"`
	SectionID string         `json:"sectionId" db:"section_id"`
	SortOrder int            `json:"order" db:"sort_order"`
	Expanded  bool           `json:"expanded" db:"expanded"`
	Title     string         `json:"title,omitempty" db:"title"`
	Subtitle  string         `json:"subtitle,omitempty" db:"subtitle"`
	Icon      string         `json:"icon,omitempty" db:"icon"`
	PillarID  *string        `json:"pillarId,omitempty" db:"pillar_id"`
	Source    string         `json:"source" db:"source"`
	Data      map[string]any `json:"data" db:"-"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
}

// Pillar is a user-owned categorization entity that todos and blocks
// may reference. Managed by a sibling service; only existence and
// ownership are checked here.
type Pillar struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IdempotencyRecord stores the outcome of a keyed plan request. Created
// at most once per key and immutable afterward.
type IdempotencyRecord struct {
	Key          string    `db:"key"` // sha256 of user+endpoint+date+client key
	UserID       string    `db:"user_id"`
	Endpoint     string    `db:"endpoint"`
	Date         string    `db:"date"`
	RequestHash  string    `db:"request_hash"`
	StatusCode   int       `db:"status_code"`
	ResponseBody []byte    `db:"response_body"`
	CreatedAt    time.Time `db:"created_at"`
}
