package plan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/internal/blocktype"
	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// reconcileResult is the block reconciler's output.
type reconcileResult struct {
	// blocks is the final set of day-native blocks after the write mode
	// has been applied.
	blocks  []*model.Block
	created int
	updated int
	deleted int
	// missingDeleteIDs lists append-mode delete targets that did not
	// exist. Reported, never an error.
	missingDeleteIDs []string
}

// reconcileBlocks applies the requested write mode to the day's native
// blocks. Every incoming payload is validated against its type schema
// before the first write, so a schema violation aborts with nothing
// persisted.
func reconcileBlocks(ctx context.Context, tx *store.Tx, cmd *Command, registry blocktype.Registry, now time.Time) (*reconcileResult, error) {
	schemas := make([]*blocktype.Schema, len(cmd.Natives))
	for i, n := range cmd.Natives {
		schema, err := registry.Resolve(n.TypeID)
		if err != nil {
			return nil, validationf(
				fieldAt("day.blocks", i, "typeId"),
				"unknown block type %q", n.TypeID)
		}
		if err := schema.ValidateData(n.Data); err != nil {
			return nil, &ValidationError{
				Field:   fieldAt("day.blocks", i, "data"),
				Message: err.Error(),
			}
		}
		schemas[i] = schema
	}

	existing, err := tx.BlocksForDay(ctx, cmd.UserID, cmd.Date)
	if err != nil {
		return nil, err
	}

	result := &reconcileResult{missingDeleteIDs: []string{}}

	// One-way migration sweep: persisted blocks with retired or
	// disabled type ids are removed regardless of mode.
	var swept []string
	var remaining []*model.Block
	for _, b := range existing {
		if blocktype.IsLegacy(b.TypeID) || blocktype.IsDisabled(b.TypeID) {
			swept = append(swept, b.ID)
			continue
		}
		remaining = append(remaining, b)
	}
	if len(swept) > 0 {
		n, err := tx.DeleteBlocks(ctx, cmd.UserID, swept)
		if err != nil {
			return nil, err
		}
		result.deleted += n
	}

	switch cmd.Mode {
	case ModeReplace:
		err = reconcileReplace(ctx, tx, cmd, remaining, now, result)
	case ModeAppend:
		err = reconcileAppend(ctx, tx, cmd, remaining, now, result)
	case ModeMerge:
		err = reconcileMerge(ctx, tx, cmd, remaining, now, result)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

// reconcileReplace deletes every remaining block and inserts the
// incoming entries fresh.
func reconcileReplace(ctx context.Context, tx *store.Tx, cmd *Command, remaining []*model.Block, now time.Time, result *reconcileResult) error {
	ids := make([]string, len(remaining))
	for i, b := range remaining {
		ids[i] = b.ID
	}
	n, err := tx.DeleteBlocks(ctx, cmd.UserID, ids)
	if err != nil {
		return err
	}
	result.deleted += n

	for _, entry := range cmd.Natives {
		block, err := insertEntry(ctx, tx, cmd, entry, now)
		if err != nil {
			return err
		}
		result.blocks = append(result.blocks, block)
		result.created++
	}
	return nil
}

// reconcileAppend deletes only the explicitly targeted blocks, then
// inserts the incoming entries fresh alongside the survivors.
func reconcileAppend(ctx context.Context, tx *store.Tx, cmd *Command, remaining []*model.Block, now time.Time, result *reconcileResult) error {
	byID := make(map[string]*model.Block, len(remaining))
	for _, b := range remaining {
		byID[b.ID] = b
	}

	var targets []string
	for _, id := range cmd.DeleteBlockIDs {
		if _, ok := byID[id]; ok {
			targets = append(targets, id)
			delete(byID, id)
		} else {
			result.missingDeleteIDs = append(result.missingDeleteIDs, id)
		}
	}
	n, err := tx.DeleteBlocks(ctx, cmd.UserID, targets)
	if err != nil {
		return err
	}
	result.deleted += n

	for _, b := range remaining {
		if _, ok := byID[b.ID]; ok {
			result.blocks = append(result.blocks, b)
		}
	}
	for _, entry := range cmd.Natives {
		block, err := insertEntry(ctx, tx, cmd, entry, now)
		if err != nil {
			return err
		}
		result.blocks = append(result.blocks, block)
		result.created++
	}
	return nil
}

// reconcileMerge matches incoming entries against existing blocks by
// (sectionId, typeId). Each entry pops the oldest unmatched block with
// its key and updates it in place; entries with no match insert fresh.
// Re-applying the same singleton request therefore never duplicates.
func reconcileMerge(ctx context.Context, tx *store.Tx, cmd *Command, remaining []*model.Block, now time.Time, result *reconcileResult) error {
	type mergeKey struct{ section, typeID string }

	// remaining arrives in the deterministic day-view order, so each
	// group is already FIFO: oldest first.
	groups := make(map[mergeKey][]*model.Block)
	for _, b := range remaining {
		k := mergeKey{b.SectionID, b.TypeID}
		groups[k] = append(groups[k], b)
	}

	matched := make(map[string]bool)
	for _, entry := range cmd.Natives {
		k := mergeKey{entry.SectionID, entry.TypeID}
		if group := groups[k]; len(group) > 0 {
			block := group[0]
			groups[k] = group[1:]

			block.SortOrder = entry.Order
			block.Expanded = entry.Expanded
			block.Title = entry.Title
			block.Subtitle = entry.Subtitle
			block.Icon = entry.Icon
			block.PillarID = entry.PillarID
			block.Source = entry.Source
			block.Data = entry.Data
			block.UpdatedAt = now

			if err := tx.UpdateBlock(ctx, block); err != nil {
				return err
			}
			matched[block.ID] = true
			result.blocks = append(result.blocks, block)
			result.updated++
			continue
		}

		block, err := insertEntry(ctx, tx, cmd, entry, now)
		if err != nil {
			return err
		}
		result.blocks = append(result.blocks, block)
		result.created++
	}

	for _, b := range remaining {
		if !matched[b.ID] {
			if stillQueued(groups[mergeKey{b.SectionID, b.TypeID}], b.ID) {
				result.blocks = append(result.blocks, b)
			}
		}
	}
	return nil
}

// stillQueued reports whether the block id survived unmatched in its group.
func stillQueued(group []*model.Block, id string) bool {
	for _, b := range group {
		if b.ID == id {
			return true
		}
	}
	return false
}

// insertEntry persists one incoming native entry as a fresh block.
func insertEntry(ctx context.Context, tx *store.Tx, cmd *Command, entry NativeEntry, now time.Time) (*model.Block, error) {
	block := &model.Block{
		ID:        uuid.New().String(),
		UserID:    cmd.UserID,
		Date:      cmd.Date,
		TypeID:    entry.TypeID,
		SectionID: entry.SectionID,
		SortOrder: entry.Order,
		Expanded:  entry.Expanded,
		Title:     entry.Title,
		Subtitle:  entry.Subtitle,
		Icon:      entry.Icon,
		PillarID:  entry.PillarID,
		Source:    entry.Source,
		Data:      entry.Data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.InsertBlock(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}
