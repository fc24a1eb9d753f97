package model

import "time"

// Todo status constants.
const (
	TodoStatusActive    = "active"
	TodoStatusCompleted = "completed"
)

// Priority bounds for todos.
const (
	PriorityMin     = 1
	PriorityMax     = 4
	PriorityDefault = 1
)

// Todo is a durable task owned by a user. A todo with a due date equal
// to a plan's date is projected into that day's view unless archived.
type Todo struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Content     string     `json:"content" db:"content"`
	Description string     `json:"description" db:"description"`
	DueDate     *string    `json:"dueDate,omitempty" db:"due_date"` // date-only, YYYY-MM-DD
	SectionID   string     `json:"sectionId" db:"section_id"`
	Priority    int        `json:"priority" db:"priority"`
	ParentID    *string    `json:"parentId,omitempty" db:"parent_id"`
	Status      string     `json:"status" db:"status"`
	SortOrder   int        `json:"order" db:"sort_order"`
	Labels      []string   `json:"labels" db:"-"`
	PillarID    *string    `json:"pillarId,omitempty" db:"pillar_id"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty" db:"archived_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}
