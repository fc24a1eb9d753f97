package plan

import (
	"sort"

	"github.com/planfold/planfold/internal/model"
)

// AssembleDay composes the final day view from native and projected
// blocks. Pure: section membership and order are recomputed from the
// inputs on every call, never cached.
func AssembleDay(natives []*model.Block, projections []model.DayBlock) []model.DaySection {
	all := make([]model.DayBlock, 0, len(natives)+len(projections))
	for _, b := range natives {
		all = append(all, nativeView(b))
	}
	all = append(all, projections...)

	sort.SliceStable(all, func(i, j int) bool {
		return lessDayBlock(all[i], all[j])
	})

	sections := make([]model.DaySection, len(model.Sections))
	for i, id := range model.Sections {
		sections[i] = model.DaySection{ID: id, Blocks: []model.DayBlock{}}
	}
	for _, b := range all {
		rank := model.SectionRank(b.SectionID)
		if rank >= len(sections) {
			continue
		}
		sections[rank].Blocks = append(sections[rank].Blocks, b)
	}
	return sections
}

// lessDayBlock is the total order of the day view: section rank, then
// numeric order, then creation time, then id as the final tiebreak.
func lessDayBlock(a, b model.DayBlock) bool {
	ra, rb := model.SectionRank(a.SectionID), model.SectionRank(b.SectionID)
	if ra != rb {
		return ra < rb
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// nativeView renders a persisted block into its day-view shape.
func nativeView(b *model.Block) model.DayBlock {
	return model.DayBlock{
		ID:        b.ID,
		TypeID:    b.TypeID,
		SectionID: b.SectionID,
		Order:     b.SortOrder,
		Expanded:  b.Expanded,
		Title:     b.Title,
		Subtitle:  b.Subtitle,
		Icon:      b.Icon,
		PillarID:  b.PillarID,
		Source:    b.Source,
		Data:      b.Data,
		CreatedAt: b.CreatedAt,
	}
}
