package model

// Canonical day sections, in display order.
const (
	SectionMorning   = "morning"
	SectionAfternoon = "afternoon"
	SectionEvening   = "evening"
)

// Sections lists the canonical section ids in display order.
var Sections = []string{SectionMorning, SectionAfternoon, SectionEvening}

// SectionRank returns the position of a section in the canonical order.
// Unknown sections sort last.
func SectionRank(id string) int {
	for i, s := range Sections {
		if s == id {
			return i
		}
	}
	return len(Sections)
}

// ValidSection reports whether id is one of the canonical sections.
func ValidSection(id string) bool {
	return SectionRank(id) < len(Sections)
}
