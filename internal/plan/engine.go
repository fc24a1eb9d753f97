package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/planfold/planfold/internal/blocktype"
	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// PlanEndpoint tags plan-write outcomes in the idempotency scope.
const PlanEndpoint = "day-plan"

// Envelope is the response body of a plan write.
type Envelope struct {
	Date    string        `json:"date"`
	Mode    Mode          `json:"mode"`
	Created CreatedCounts `json:"created"`
	Updated UpdatedCounts `json:"updated"`
	Deleted DeletedCounts `json:"deleted"`
	Day     DayEnvelope   `json:"day"`
}

// CreatedCounts reports entities created by the request.
type CreatedCounts struct {
	Todos  []CreatedTodo `json:"todos"`
	Blocks int           `json:"blocks"`
}

// UpdatedCounts reports entities updated by the request.
type UpdatedCounts struct {
	Todos  int `json:"todos"`
	Blocks int `json:"blocks"`
}

// DeletedCounts reports blocks deleted by the request, plus any
// append-mode delete targets that were already gone.
type DeletedCounts struct {
	Blocks          int      `json:"blocks"`
	MissingBlockIDs []string `json:"missingBlockIds,omitempty"`
}

// DayEnvelope wraps the assembled day view.
type DayEnvelope struct {
	Sections []model.DaySection `json:"sections"`
}

// Result is the outcome of applying a command: a status code, the
// marshaled envelope, and whether it was replayed from an earlier
// identical request.
type Result struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// Engine executes normalized plan commands. Each Apply runs as exactly
// one atomic unit of work; there are no in-process locks, and safety
// under concurrency comes from transaction isolation plus the
// idempotency key.
type Engine struct {
	store *store.Store
	types blocktype.Registry
	log   zerolog.Logger
	now   func() time.Time
}

// NewEngine constructs an engine with its collaborators injected.
func NewEngine(s *store.Store, types blocktype.Registry, log zerolog.Logger) *Engine {
	return &Engine{
		store: s,
		types: types,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Apply executes the command. With a client key, the request is applied
// at most once: an identical replay returns the stored outcome, and
// reuse with a different body fails with a ConflictError.
func (e *Engine) Apply(ctx context.Context, cmd *Command, clientKey string) (*Result, error) {
	var result *Result

	err := e.store.RunInTx(ctx, func(tx *store.Tx) error {
		var scope, reqHash string
		if clientKey != "" {
			scope = idempotencyScope(cmd.UserID, PlanEndpoint, cmd.Date, clientKey)
			var err error
			reqHash, err = hashCommand(cmd)
			if err != nil {
				return err
			}

			rec, err := tx.GetIdempotencyRecord(ctx, scope)
			switch {
			case err == nil && rec.RequestHash == reqHash:
				result = &Result{StatusCode: rec.StatusCode, Body: rec.ResponseBody, Replayed: true}
				return nil
			case err == nil:
				return &ConflictError{
					Message: "idempotency key already used with a different request body",
				}
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		now := e.now()

		res, err := resolveReferences(ctx, tx, cmd)
		if err != nil {
			return err
		}
		todos, err := applyTodoUpserts(ctx, tx, cmd, res, now)
		if err != nil {
			return err
		}
		blocks, err := reconcileBlocks(ctx, tx, cmd, e.types, now)
		if err != nil {
			return err
		}
		projections, err := buildProjections(ctx, tx, cmd, todos, res, now)
		if err != nil {
			return err
		}

		envelope := Envelope{
			Date: cmd.Date,
			Mode: cmd.Mode,
			Created: CreatedCounts{
				Todos:  todos.created,
				Blocks: blocks.created,
			},
			Updated: UpdatedCounts{
				Todos:  todos.updated + projections.updatedTodos,
				Blocks: blocks.updated,
			},
			Deleted: DeletedCounts{
				Blocks:          blocks.deleted,
				MissingBlockIDs: blocks.missingDeleteIDs,
			},
			Day: DayEnvelope{Sections: AssembleDay(blocks.blocks, projections.blocks)},
		}

		status := http.StatusOK
		if len(todos.created) > 0 || blocks.created > 0 || blocks.deleted > 0 {
			status = http.StatusCreated
		}

		body, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("marshaling response envelope: %w", err)
		}

		if clientKey != "" {
			err := tx.InsertIdempotencyRecord(ctx, &model.IdempotencyRecord{
				Key:          scope,
				UserID:       cmd.UserID,
				Endpoint:     PlanEndpoint,
				Date:         cmd.Date,
				RequestHash:  reqHash,
				StatusCode:   status,
				ResponseBody: body,
				CreatedAt:    now,
			})
			if err != nil {
				return err
			}
		}

		result = &Result{StatusCode: status, Body: body}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("user", cmd.UserID).
		Str("date", cmd.Date).
		Str("mode", string(cmd.Mode)).
		Bool("replayed", result.Replayed).
		Int("status", result.StatusCode).
		Msg("plan applied")

	return result, nil
}

// ReadDay assembles the current day view without mutating anything.
func (e *Engine) ReadDay(ctx context.Context, userID, date string) ([]model.DaySection, error) {
	var sections []model.DaySection
	err := e.store.RunInReadTx(ctx, func(tx *store.Tx) error {
		blocks, err := tx.BlocksForDay(ctx, userID, date)
		if err != nil {
			return err
		}
		due, err := tx.TodosDueOn(ctx, userID, date)
		if err != nil {
			return err
		}

		projections := make([]model.DayBlock, 0, len(due))
		for _, todo := range due {
			projections = append(projections, projectTodo(todo))
		}

		// Legacy blocks are swept only on writes; hide them from reads.
		var visible []*model.Block
		for _, b := range blocks {
			if blocktype.IsLegacy(b.TypeID) || blocktype.IsDisabled(b.TypeID) {
				continue
			}
			visible = append(visible, b)
		}

		sections = AssembleDay(visible, projections)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}
