package plan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// projectionNamespace seeds the deterministic projection block ids.
// Fixed forever: a todo must map to the same projection id on every
// assembly.
var projectionNamespace = uuid.MustParse("9f2c1b36-5d8a-4e0f-b7c3-2a64d1e85f90")

// ProjectionBlockID derives the stable day-view block id for a todo.
func ProjectionBlockID(todoID string) string {
	return uuid.NewSHA1(projectionNamespace, []byte(todoID)).String()
}

// projectionResult is the projection builder's output.
type projectionResult struct {
	blocks       []model.DayBlock
	updatedTodos int
}

// buildProjections first applies explicit todo-projection entries
// (repositioning the referenced todos onto the plan's date), then
// recomputes the full projection set from the todos now due on the
// date. Explicit scheduling therefore always shows up in the same
// response.
func buildProjections(ctx context.Context, tx *store.Tx, cmd *Command, todos *todoApplyResult, res *resolution, now time.Time) (*projectionResult, error) {
	out := &projectionResult{}

	scheduled := make(map[string]bool)
	for i, p := range cmd.Projections {
		todo, err := resolveProjectionTarget(p, i, todos, res)
		if err != nil {
			return nil, err
		}
		if scheduled[todo.ID] {
			return nil, validationf(
				fieldAt("day.blocks", i, "todoRef"),
				"todo %q scheduled more than once", todo.ID)
		}
		scheduled[todo.ID] = true

		// Explicit scheduling pins the todo to this plan's date.
		date := cmd.Date
		todo.DueDate = &date
		todo.SectionID = p.SectionID
		todo.SortOrder = p.Order
		todo.UpdatedAt = now

		if err := tx.UpdateTodo(ctx, todo); err != nil {
			return nil, err
		}
		todos.byID[todo.ID] = todo
		out.updatedTodos++
	}

	due, err := tx.TodosDueOn(ctx, cmd.UserID, cmd.Date)
	if err != nil {
		return nil, err
	}
	for _, todo := range due {
		out.blocks = append(out.blocks, projectTodo(todo))
	}

	return out, nil
}

// resolveProjectionTarget maps a projection entry's ref to a live todo.
// ClientIds resolve through this request's upserts; ids resolve through
// the pre-read set or the applier's output. Archived todos and
// unresolvable refs are validation errors.
func resolveProjectionTarget(p ProjectionEntry, idx int, todos *todoApplyResult, res *resolution) (*model.Todo, error) {
	var todo *model.Todo

	switch {
	case p.Ref.ClientID != "":
		id, ok := todos.clientIDs[p.Ref.ClientID]
		if !ok {
			return nil, validationf(
				fieldAt("day.blocks", idx, "todoRef.clientId"),
				"%q did not create a todo", p.Ref.ClientID)
		}
		todo = todos.byID[id]
	case todos.byID[p.Ref.ID] != nil:
		todo = todos.byID[p.Ref.ID]
	case res.existingTodos[p.Ref.ID] != nil:
		todo = res.existingTodos[p.Ref.ID]
	default:
		return nil, validationf(
			fieldAt("day.blocks", idx, "todoRef.id"),
			"todo %q not found", p.Ref.ID)
	}

	if todo.ArchivedAt != nil {
		return nil, validationf(
			fieldAt("day.blocks", idx, "todoRef"),
			"todo %q is archived", todo.ID)
	}
	return todo, nil
}

// projectTodo synthesizes the derived day-view block for a todo. The
// result is never persisted; it exists only in assembled views.
func projectTodo(todo *model.Todo) model.DayBlock {
	return model.DayBlock{
		ID:        ProjectionBlockID(todo.ID),
		TypeID:    "todo",
		SectionID: todo.SectionID,
		Order:     todo.SortOrder,
		PillarID:  todo.PillarID,
		Todo: &model.TodoView{
			ID:          todo.ID,
			Content:     todo.Content,
			Description: todo.Description,
			Status:      todo.Status,
			Priority:    todo.Priority,
			Labels:      todo.Labels,
			PillarID:    todo.PillarID,
			CompletedAt: todo.CompletedAt,
		},
		CreatedAt: todo.CreatedAt,
	}
}
