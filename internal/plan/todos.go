package plan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// CreatedTodo reports one todo created by the request, pairing the
// client-supplied id with the generated one.
type CreatedTodo struct {
	ClientID string `json:"clientId,omitempty"`
	ID       string `json:"id"`
}

// todoApplyResult is the applier's output consumed by the projection
// builder and the response envelope.
type todoApplyResult struct {
	created []CreatedTodo
	updated int
	// byID holds the post-write state of every touched todo.
	byID map[string]*model.Todo
	// clientIDs maps clientId -> generated id for this request.
	clientIDs map[string]string
}

// applyTodoUpserts creates or patches each todo entry. Existing targets
// get partial-update semantics: only explicitly provided fields change.
// New targets require content and are filled with defaults.
func applyTodoUpserts(ctx context.Context, tx *store.Tx, cmd *Command, res *resolution, now time.Time) (*todoApplyResult, error) {
	out := &todoApplyResult{
		created:   []CreatedTodo{},
		byID:      map[string]*model.Todo{},
		clientIDs: map[string]string{},
	}

	for i, u := range cmd.TodoUpserts {
		existing := res.existingTodos[u.ID]
		if u.ID != "" && existing != nil {
			todo, err := patchTodo(ctx, tx, existing, u, now)
			if err != nil {
				return nil, err
			}
			out.updated++
			out.byID[todo.ID] = todo
			if u.ClientID != "" {
				out.clientIDs[u.ClientID] = todo.ID
			}
			continue
		}

		todo, err := createTodo(ctx, tx, cmd, u, i, now)
		if err != nil {
			return nil, err
		}
		out.created = append(out.created, CreatedTodo{ClientID: u.ClientID, ID: todo.ID})
		out.byID[todo.ID] = todo
		if u.ClientID != "" {
			out.clientIDs[u.ClientID] = todo.ID
		}
	}

	return out, nil
}

func patchTodo(ctx context.Context, tx *store.Tx, todo *model.Todo, u TodoUpsert, now time.Time) (*model.Todo, error) {
	if u.Content != nil {
		todo.Content = *u.Content
	}
	if u.Description != nil {
		todo.Description = *u.Description
	}
	if u.DueDate != nil {
		todo.DueDate = u.DueDate
	}
	if u.SectionID != nil {
		todo.SectionID = *u.SectionID
	}
	if u.Priority != nil {
		todo.Priority = *u.Priority
	}
	if u.ParentID != nil {
		todo.ParentID = u.ParentID
	}
	if u.Order != nil {
		todo.SortOrder = *u.Order
	}
	if u.Labels != nil {
		todo.Labels = u.Labels
	}
	if u.PillarID != nil {
		todo.PillarID = u.PillarID
	}
	if u.Status != nil {
		applyStatus(todo, *u.Status, now)
	}
	todo.UpdatedAt = now

	if err := tx.UpdateTodo(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func createTodo(ctx context.Context, tx *store.Tx, cmd *Command, u TodoUpsert, idx int, now time.Time) (*model.Todo, error) {
	if u.Content == nil {
		return nil, validationf(
			fieldAt("primitives.todos.upsert", idx, "content"),
			"is required when creating a todo")
	}

	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}

	todo := &model.Todo{
		ID:        id,
		UserID:    cmd.UserID,
		Content:   *u.Content,
		SectionID: model.SectionAfternoon,
		Priority:  model.PriorityDefault,
		Status:    model.TodoStatusActive,
		Labels:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// A todo created through a day plan belongs to that day unless the
	// client says otherwise.
	planDate := cmd.Date
	todo.DueDate = &planDate

	if u.Description != nil {
		todo.Description = *u.Description
	}
	if u.DueDate != nil {
		todo.DueDate = u.DueDate
	}
	if u.SectionID != nil {
		todo.SectionID = *u.SectionID
	}
	if u.Priority != nil {
		todo.Priority = *u.Priority
	}
	if u.ParentID != nil {
		todo.ParentID = u.ParentID
	}
	if u.Order != nil {
		todo.SortOrder = *u.Order
	}
	if u.Labels != nil {
		todo.Labels = u.Labels
	}
	if u.PillarID != nil {
		todo.PillarID = u.PillarID
	}
	if u.Status != nil {
		applyStatus(todo, *u.Status, now)
	}

	if err := tx.InsertTodo(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// applyStatus transitions completed<->active. The first transition to
// completed captures now; re-completing preserves the original
// timestamp; going back to active clears it.
func applyStatus(todo *model.Todo, status string, now time.Time) {
	todo.Status = status
	switch status {
	case model.TodoStatusCompleted:
		if todo.CompletedAt == nil {
			t := now
			todo.CompletedAt = &t
		}
	case model.TodoStatusActive:
		todo.CompletedAt = nil
	}
}
