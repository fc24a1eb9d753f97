package plan

import (
	"context"
	"fmt"

	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// resolution carries the read-set of cross-entity references, gathered
// before any mutation so an invalid reference can never be discovered
// mid-transaction.
type resolution struct {
	// existingTodos holds every explicitly referenced todo that already
	// exists, keyed by id. Upsert ids absent from this map are creations.
	existingTodos map[string]*model.Todo
}

// resolveReferences validates every pillar reference and reads every
// explicitly referenced todo. Runs before the appliers touch anything.
func resolveReferences(ctx context.Context, tx *store.Tx, cmd *Command) (*resolution, error) {
	pillarIDs := map[string]bool{}
	for _, u := range cmd.TodoUpserts {
		if u.PillarID != nil {
			pillarIDs[*u.PillarID] = true
		}
	}
	for _, n := range cmd.Natives {
		if n.PillarID != nil {
			pillarIDs[*n.PillarID] = true
		}
	}
	for id := range pillarIDs {
		ok, err := tx.PillarExists(ctx, cmd.UserID, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, validationf("pillarId", "pillar %q not found", id)
		}
	}

	todoIDs := map[string]bool{}
	for _, u := range cmd.TodoUpserts {
		if u.ID != "" {
			todoIDs[u.ID] = true
		}
		if u.ParentID != nil {
			todoIDs[*u.ParentID] = true
		}
	}
	for _, p := range cmd.Projections {
		if p.Ref.ID != "" {
			todoIDs[p.Ref.ID] = true
		}
	}

	ids := make([]string, 0, len(todoIDs))
	for id := range todoIDs {
		ids = append(ids, id)
	}
	existing, err := tx.GetTodosByIDs(ctx, cmd.UserID, ids)
	if err != nil {
		return nil, err
	}

	// Parent references must resolve now; they are never created by the
	// same request.
	for i, u := range cmd.TodoUpserts {
		if u.ParentID == nil {
			continue
		}
		if _, ok := existing[*u.ParentID]; !ok {
			return nil, validationf(
				fieldAt("primitives.todos.upsert", i, "parentId"),
				"todo %q not found", *u.ParentID)
		}
	}

	return &resolution{existingTodos: existing}, nil
}

// fieldAt formats an indexed request path like base[i].name.
func fieldAt(base string, i int, name string) string {
	return fmt.Sprintf("%s[%d].%s", base, i, name)
}
