package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/planfold/planfold/internal/model"
)

const todoColumns = `id, user_id, content, description, due_date, section_id,
	priority, parent_id, status, sort_order, labels, pillar_id,
	archived_at, created_at, updated_at, completed_at`

// InsertTodo inserts a new todo row.
func (t *Tx) InsertTodo(ctx context.Context, todo *model.Todo) error {
	labels, err := marshalLabels(todo.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels for todo %s: %w", todo.ID, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.UserID, todo.Content, todo.Description, todo.DueDate, todo.SectionID,
		todo.Priority, todo.ParentID, todo.Status, todo.SortOrder, labels, todo.PillarID,
		todo.ArchivedAt, todo.CreatedAt.UTC(), todo.UpdatedAt.UTC(), todo.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting todo %s: %w", todo.ID, err)
	}
	return nil
}

// UpdateTodo writes the full todo row back by id.
func (t *Tx) UpdateTodo(ctx context.Context, todo *model.Todo) error {
	labels, err := marshalLabels(todo.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels for todo %s: %w", todo.ID, err)
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE todos SET
			content = ?, description = ?, due_date = ?, section_id = ?,
			priority = ?, parent_id = ?, status = ?, sort_order = ?,
			labels = ?, pillar_id = ?, archived_at = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND user_id = ?`,
		todo.Content, todo.Description, todo.DueDate, todo.SectionID,
		todo.Priority, todo.ParentID, todo.Status, todo.SortOrder,
		labels, todo.PillarID, todo.ArchivedAt, todo.UpdatedAt.UTC(), todo.CompletedAt,
		todo.ID, todo.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", todo.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTodo retrieves one todo by id, scoped to the owning user.
func (t *Tx) GetTodo(ctx context.Context, userID, id string) (*model.Todo, error) {
	row := t.tx.QueryRowxContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE id = ? AND user_id = ?", id, userID)

	todo, err := scanTodoRow(row)
	if err != nil {
		return nil, notFoundOr(err, "getting todo %s", id)
	}
	return todo, nil
}

// GetTodosByIDs retrieves the subset of ids that exist for the user.
// Missing ids are simply absent from the result.
func (t *Tx) GetTodosByIDs(ctx context.Context, userID string, ids []string) (map[string]*model.Todo, error) {
	out := make(map[string]*model.Todo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sq.Select(todoColumns).
		From("todos").
		Where(sq.Eq{"user_id": userID, "id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building todo lookup query: %w", err)
	}

	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying todos by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		todo, err := scanTodoRows(rows)
		if err != nil {
			return nil, err
		}
		out[todo.ID] = todo
	}
	return out, rows.Err()
}

// TodosDueOn retrieves every non-archived todo of the user whose due
// date equals the given plan date.
func (t *Tx) TodosDueOn(ctx context.Context, userID, date string) ([]*model.Todo, error) {
	query, args, err := sq.Select(todoColumns).
		From("todos").
		Where(sq.Eq{"user_id": userID, "due_date": date}).
		Where("archived_at IS NULL").
		OrderBy("sort_order", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building due-todos query: %w", err)
	}

	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying todos due on %s: %w", date, err)
	}
	defer rows.Close()

	var todos []*model.Todo
	for rows.Next() {
		todo, err := scanTodoRows(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// scanTodoRows scans a todo from a sqlx.Rows result set.
func scanTodoRows(rows *sqlx.Rows) (*model.Todo, error) {
	return scanTodoRow(rows)
}

// scanTodoRow scans a todo from anything exposing Scan.
func scanTodoRow(row interface{ Scan(dest ...any) error }) (*model.Todo, error) {
	var (
		todo        model.Todo
		labels      string
		dueDate     *string
		parentID    *string
		pillarID    *string
		archivedAt  *time.Time
		completedAt *time.Time
	)

	err := row.Scan(
		&todo.ID, &todo.UserID, &todo.Content, &todo.Description, &dueDate, &todo.SectionID,
		&todo.Priority, &parentID, &todo.Status, &todo.SortOrder, &labels, &pillarID,
		&archivedAt, &todo.CreatedAt, &todo.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	todo.DueDate = dueDate
	todo.ParentID = parentID
	todo.PillarID = pillarID
	todo.ArchivedAt = archivedAt
	todo.CompletedAt = completedAt

	if labels != "" {
		if err := json.Unmarshal([]byte(labels), &todo.Labels); err != nil {
			return nil, fmt.Errorf("unmarshaling labels: %w", err)
		}
	}
	if todo.Labels == nil {
		todo.Labels = []string{}
	}

	return &todo, nil
}

// marshalLabels encodes the labels slice as a JSON text column.
func marshalLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
