package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/planfold/planfold/internal/model"
)

const blockColumns = `id, user_id, date, type_id, section_id, sort_order,
	expanded, title, subtitle, icon, pillar_id, source, data,
	created_at, updated_at`

// BlocksForDay retrieves every day-native block for (user, date),
// ordered by the deterministic day-view sort.
func (t *Tx) BlocksForDay(ctx context.Context, userID, date string) ([]*model.Block, error) {
	query, args, err := sq.Select(blockColumns).
		From("blocks").
		Where(sq.Eq{"user_id": userID, "date": date}).
		OrderBy("section_id", "sort_order", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building day-blocks query: %w", err)
	}

	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying blocks for %s: %w", date, err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// InsertBlock inserts a new day-native block row.
func (t *Tx) InsertBlock(ctx context.Context, block *model.Block) error {
	data, err := marshalData(block.Data)
	if err != nil {
		return fmt.Errorf("marshaling data for block %s: %w", block.ID, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO blocks (`+blockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block.ID, block.UserID, block.Date, block.TypeID, block.SectionID, block.SortOrder,
		boolToInt(block.Expanded), block.Title, block.Subtitle, block.Icon,
		block.PillarID, block.Source, data,
		block.CreatedAt.UTC(), block.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting block %s: %w", block.ID, err)
	}
	return nil
}

// UpdateBlock writes the full block row back by id.
func (t *Tx) UpdateBlock(ctx context.Context, block *model.Block) error {
	data, err := marshalData(block.Data)
	if err != nil {
		return fmt.Errorf("marshaling data for block %s: %w", block.ID, err)
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE blocks SET
			type_id = ?, section_id = ?, sort_order = ?, expanded = ?,
			title = ?, subtitle = ?, icon = ?, pillar_id = ?, source = ?,
			data = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		block.TypeID, block.SectionID, block.SortOrder, boolToInt(block.Expanded),
		block.Title, block.Subtitle, block.Icon, block.PillarID, block.Source,
		data, block.UpdatedAt.UTC(),
		block.ID, block.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating block %s: %w", block.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBlocks removes the given block ids for the user. Returns the
// number of rows actually deleted.
func (t *Tx) DeleteBlocks(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sq.Delete("blocks").
		Where(sq.Eq{"user_id": userID, "id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building block delete query: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting blocks: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// scanBlock scans a block from a sqlx.Rows result set.
func scanBlock(rows *sqlx.Rows) (*model.Block, error) {
	var (
		block    model.Block
		expanded int
		pillarID *string
		data     string
	)

	err := rows.Scan(
		&block.ID, &block.UserID, &block.Date, &block.TypeID, &block.SectionID, &block.SortOrder,
		&expanded, &block.Title, &block.Subtitle, &block.Icon, &pillarID, &block.Source, &data,
		&block.CreatedAt, &block.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning block row: %w", err)
	}

	block.Expanded = expanded != 0
	block.PillarID = pillarID

	if data != "" {
		if err := json.Unmarshal([]byte(data), &block.Data); err != nil {
			return nil, fmt.Errorf("unmarshaling block data: %w", err)
		}
	}
	if block.Data == nil {
		block.Data = map[string]any{}
	}

	return &block, nil
}

// marshalData encodes a block's data payload as a JSON text column.
func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
