package model

import "time"

// DayBlock is one rendered entry of a day view: either a persisted
// day-native block or a derived todo projection. Projections are never
// written back; they exist only in assembled views.
type DayBlock struct {
	ID        string         `json:"id"`
	TypeID    string         `json:"typeId"`
	SectionID string         `json:"sectionId"`
	Order     int            `json:"order"`
	Expanded  bool           `json:"expanded"`
	Title     string         `json:"title,omitempty"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	PillarID  *string        `json:"pillarId,omitempty"`
	Source    string         `json:"source,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Todo      *TodoView      `json:"todo,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TodoView is the read-only rendering of a todo inside a projection block.
type TodoView struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	Labels      []string   `json:"labels,omitempty"`
	PillarID    *string    `json:"pillarId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// DaySection groups the ordered blocks of one canonical section.
type DaySection struct {
	ID     string     `json:"id"`
	Blocks []DayBlock `json:"blocks"`
}
