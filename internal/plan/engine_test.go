package plan

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfold/planfold/internal/blocktype"
	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
	"github.com/planfold/planfold/tests/testutil"
)

const (
	testUser = "user-1"
	testDate = "2025-06-01"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s := testutil.NewTestStore(t)
	return NewEngine(s, blocktype.NewStaticRegistry(), zerolog.Nop()), s
}

func mustApply(t *testing.T, e *Engine, body, key string) (*Result, Envelope) {
	t.Helper()
	cmd, err := Normalize(testUser, testDate, strings.NewReader(body))
	require.NoError(t, err)

	res, err := e.Apply(context.Background(), cmd, key)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(res.Body, &env))
	return res, env
}

func sectionByID(t *testing.T, env Envelope, id string) model.DaySection {
	t.Helper()
	for _, s := range env.Day.Sections {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("section %s not in envelope", id)
	return model.DaySection{}
}

func seedBlock(t *testing.T, s *store.Store, block model.Block) *model.Block {
	t.Helper()
	if block.Data == nil {
		block.Data = map[string]any{}
	}
	now := time.Now().UTC()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
		block.UpdatedAt = now
	}
	if block.Source == "" {
		block.Source = model.BlockSourceUser
	}
	err := s.RunInTx(context.Background(), func(tx *store.Tx) error {
		return tx.InsertBlock(context.Background(), &block)
	})
	require.NoError(t, err)
	return &block
}

func TestApplyCreatesTodoWithProjection(t *testing.T) {
	e, _ := newTestEngine(t)

	res, env := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Buy milk"}]}},
		"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"clientId": "c1"}}]}
	}`, "")

	assert.Equal(t, 201, res.StatusCode)
	require.Len(t, env.Created.Todos, 1)
	assert.Equal(t, "c1", env.Created.Todos[0].ClientID)
	assert.NotEmpty(t, env.Created.Todos[0].ID)

	morning := sectionByID(t, env, model.SectionMorning)
	require.Len(t, morning.Blocks, 1)
	assert.Equal(t, "todo", morning.Blocks[0].TypeID)
	require.NotNil(t, morning.Blocks[0].Todo)
	assert.Equal(t, env.Created.Todos[0].ID, morning.Blocks[0].Todo.ID)
	assert.Equal(t, "Buy milk", morning.Blocks[0].Todo.Content)
	assert.Equal(t, ProjectionBlockID(env.Created.Todos[0].ID), morning.Blocks[0].ID)
}

func TestReplayReturnsStoredResponse(t *testing.T) {
	e, s := newTestEngine(t)

	body := `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Buy milk"}]}},
		"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"clientId": "c1"}}]}
	}`

	first, _ := mustApply(t, e, body, "key-1")
	second, _ := mustApply(t, e, body, "key-1")

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.Equal(t, first.Body, second.Body)

	// The replay performed no writes: still exactly one todo due.
	err := s.RunInReadTx(context.Background(), func(tx *store.Tx) error {
		due, err := tx.TodosDueOn(context.Background(), testUser, testDate)
		require.NoError(t, err)
		assert.Len(t, due, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestKeyReuseWithDifferentBodyConflicts(t *testing.T) {
	e, _ := newTestEngine(t)

	mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Buy milk"}]}}
	}`, "key-1")

	cmd, err := Normalize(testUser, testDate, strings.NewReader(`{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Buy bread"}]}}
	}`))
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), cmd, "key-1")
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
}

func TestReplaceIsIdempotentOnData(t *testing.T) {
	e, _ := newTestEngine(t)

	body := `{
		"mode": "replace",
		"day": {"blocks": [
			{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "plan the day"}},
			{"typeId": "journal", "sectionId": "evening", "order": 0, "data": {"entry": "later"}}
		]}
	}`

	_, first := mustApply(t, e, body, "")
	_, second := mustApply(t, e, body, "")

	require.Len(t, sectionByID(t, first, model.SectionMorning).Blocks, 1)
	require.Len(t, sectionByID(t, second, model.SectionMorning).Blocks, 1)
	require.Len(t, sectionByID(t, second, model.SectionEvening).Blocks, 1)

	// Replace always deletes and reinserts, but never accumulates.
	assert.Equal(t, 2, second.Created.Blocks)
	assert.Equal(t, 2, second.Deleted.Blocks)
}

func TestMergeUpdatesInPlace(t *testing.T) {
	e, _ := newTestEngine(t)

	_, first := mustApply(t, e, `{
		"mode": "merge",
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "v1"}}]}
	}`, "")
	firstID := sectionByID(t, first, model.SectionMorning).Blocks[0].ID

	_, second := mustApply(t, e, `{
		"mode": "merge",
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 3, "data": {"text": "v2"}}]}
	}`, "")

	morning := sectionByID(t, second, model.SectionMorning)
	require.Len(t, morning.Blocks, 1)
	assert.Equal(t, firstID, morning.Blocks[0].ID)
	assert.Equal(t, 3, morning.Blocks[0].Order)
	assert.Equal(t, "v2", morning.Blocks[0].Data["text"])
	assert.Equal(t, 1, second.Updated.Blocks)
	assert.Equal(t, 0, second.Created.Blocks)
}

func TestMergeMatchesOldestFirst(t *testing.T) {
	e, s := newTestEngine(t)

	old := seedBlock(t, s, model.Block{
		ID: "block-old", UserID: testUser, Date: testDate,
		TypeID: "note", SectionID: model.SectionMorning, SortOrder: 0,
		Data:      map[string]any{"text": "old"},
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	seedBlock(t, s, model.Block{
		ID: "block-new", UserID: testUser, Date: testDate,
		TypeID: "note", SectionID: model.SectionMorning, SortOrder: 0,
		Data:      map[string]any{"text": "new"},
		CreatedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	})

	_, env := mustApply(t, e, `{
		"mode": "merge",
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "merged"}}]}
	}`, "")

	morning := sectionByID(t, env, model.SectionMorning)
	require.Len(t, morning.Blocks, 2)

	var merged, untouched int
	for _, b := range morning.Blocks {
		switch b.Data["text"] {
		case "merged":
			merged++
			assert.Equal(t, old.ID, b.ID)
		case "new":
			untouched++
		}
	}
	assert.Equal(t, 1, merged)
	assert.Equal(t, 1, untouched)
}

func TestAppendReportsMissingDeleteIDs(t *testing.T) {
	e, s := newTestEngine(t)

	kept := seedBlock(t, s, model.Block{
		ID: "block-keep", UserID: testUser, Date: testDate,
		TypeID: "note", SectionID: model.SectionMorning, SortOrder: 0,
		Data: map[string]any{"text": "keep"},
	})
	gone := seedBlock(t, s, model.Block{
		ID: "block-gone", UserID: testUser, Date: testDate,
		TypeID: "quote", SectionID: model.SectionMorning, SortOrder: 1,
		Data: map[string]any{"text": "gone"},
	})

	res, env := mustApply(t, e, `{
		"mode": "append",
		"day": {
			"blocks": [{"typeId": "journal", "sectionId": "evening", "order": 0, "data": {"entry": "x"}}],
			"deleteBlockIds": ["block-gone", "never-existed"]
		}
	}`, "")

	assert.Equal(t, 201, res.StatusCode)
	assert.Equal(t, 1, env.Deleted.Blocks)
	assert.Equal(t, []string{"never-existed"}, env.Deleted.MissingBlockIDs)

	morning := sectionByID(t, env, model.SectionMorning)
	require.Len(t, morning.Blocks, 1)
	assert.Equal(t, kept.ID, morning.Blocks[0].ID)
	for _, b := range morning.Blocks {
		assert.NotEqual(t, gone.ID, b.ID)
	}
	require.Len(t, sectionByID(t, env, model.SectionEvening).Blocks, 1)
}

func TestLegacyBlocksSwept(t *testing.T) {
	e, s := newTestEngine(t)

	seedBlock(t, s, model.Block{
		ID: "block-legacy", UserID: testUser, Date: testDate,
		TypeID: "text", SectionID: model.SectionMorning, SortOrder: 0,
		Data: map[string]any{"text": "old alias"},
	})

	_, env := mustApply(t, e, `{
		"mode": "append",
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 1, "data": {"text": "fresh"}}]}
	}`, "")

	// The legacy block is gone even though append deletes nothing else.
	assert.Equal(t, 1, env.Deleted.Blocks)
	morning := sectionByID(t, env, model.SectionMorning)
	require.Len(t, morning.Blocks, 1)
	assert.Equal(t, "note", morning.Blocks[0].TypeID)
}

func TestSchemaViolationAbortsEverything(t *testing.T) {
	e, s := newTestEngine(t)

	cmd, err := Normalize(testUser, testDate, strings.NewReader(`{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "should not persist"}]}},
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"wrong": true}}]}
	}`))
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), cmd, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// The todo upsert rolled back with the block failure.
	err = s.RunInReadTx(context.Background(), func(tx *store.Tx) error {
		due, err := tx.TodosDueOn(context.Background(), testUser, testDate)
		require.NoError(t, err)
		assert.Empty(t, due)
		return nil
	})
	require.NoError(t, err)
}

func TestPatchSemantics(t *testing.T) {
	e, _ := newTestEngine(t)

	_, env := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [
			{"clientId": "c1", "content": "Original", "description": "keep me", "priority": 3}
		]}}
	}`, "")
	id := env.Created.Todos[0].ID

	_, second := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"id": "`+id+`", "content": "Renamed"}]}}
	}`, "")

	assert.Equal(t, 1, second.Updated.Todos)
	afternoon := sectionByID(t, second, model.SectionAfternoon)
	require.Len(t, afternoon.Blocks, 1)
	todo := afternoon.Blocks[0].Todo
	require.NotNil(t, todo)
	assert.Equal(t, "Renamed", todo.Content)
	assert.Equal(t, "keep me", todo.Description)
	assert.Equal(t, 3, todo.Priority)
}

func TestCompletionTimestampPreserved(t *testing.T) {
	e, _ := newTestEngine(t)

	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return first }

	_, env := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Done deal", "status": "completed"}]}}
	}`, "")
	id := env.Created.Todos[0].ID

	later := first.Add(2 * time.Hour)
	e.now = func() time.Time { return later }

	_, second := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"id": "`+id+`", "status": "completed"}]}}
	}`, "")

	todo := sectionByID(t, second, model.SectionAfternoon).Blocks[0].Todo
	require.NotNil(t, todo)
	require.NotNil(t, todo.CompletedAt)
	assert.True(t, todo.CompletedAt.Equal(first), "re-completion must keep the original timestamp")

	// Reactivation clears the timestamp.
	_, third := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"id": "`+id+`", "status": "active"}]}}
	}`, "")
	todo = sectionByID(t, third, model.SectionAfternoon).Blocks[0].Todo
	require.NotNil(t, todo)
	assert.Nil(t, todo.CompletedAt)
}

func TestArchivedTodoNeverProjected(t *testing.T) {
	e, s := newTestEngine(t)

	archivedAt := time.Now().UTC()
	date := testDate
	archived := testutil.SeedTodo(t, s, model.Todo{
		UserID:     testUser,
		Content:    "Archived",
		DueDate:    &date,
		ArchivedAt: &archivedAt,
	})

	_, env := mustApply(t, e, `{
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "x"}}]}
	}`, "")
	for _, s := range env.Day.Sections {
		for _, b := range s.Blocks {
			assert.NotEqual(t, "todo", b.TypeID)
		}
	}

	// Explicitly scheduling an archived todo is a validation error.
	cmd, err := Normalize(testUser, testDate, strings.NewReader(`{
		"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"id": "`+archived.ID+`"}}]}
	}`))
	require.NoError(t, err)
	_, err = e.Apply(context.Background(), cmd, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "archived")
}

func TestExplicitSchedulingSetsDueDate(t *testing.T) {
	e, s := newTestEngine(t)

	todo := testutil.SeedTodo(t, s, model.Todo{
		UserID:  testUser,
		Content: "No due date yet",
	})

	res, env := mustApply(t, e, `{
		"day": {"blocks": [{"typeId": "todo", "sectionId": "evening", "order": 5, "todoRef": {"id": "`+todo.ID+`"}}]}
	}`, "")

	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, 1, env.Updated.Todos)

	evening := sectionByID(t, env, model.SectionEvening)
	require.Len(t, evening.Blocks, 1)
	assert.Equal(t, 5, evening.Blocks[0].Order)
	require.NotNil(t, evening.Blocks[0].Todo)
	assert.Equal(t, todo.ID, evening.Blocks[0].Todo.ID)

	err := s.RunInReadTx(context.Background(), func(tx *store.Tx) error {
		got, err := tx.GetTodo(context.Background(), testUser, todo.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DueDate)
		assert.Equal(t, testDate, *got.DueDate)
		return nil
	})
	require.NoError(t, err)
}

func TestUnknownPillarRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	cmd, err := Normalize(testUser, testDate, strings.NewReader(`{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x", "pillarId": "ghost"}]}}
	}`))
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), cmd, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "not found")
}

func TestOwnedPillarAccepted(t *testing.T) {
	e, s := newTestEngine(t)
	pillarID := testutil.SeedPillar(t, s, testUser, "Health")

	res, env := mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x", "pillarId": "`+pillarID+`"}]}},
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "pillarId": "`+pillarID+`", "data": {"text": "y"}}]}
	}`, "")

	assert.Equal(t, 201, res.StatusCode)
	require.Len(t, env.Created.Todos, 1)

	// Another user does not own it.
	cmd, err := Normalize("user-2", testDate, strings.NewReader(`{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x", "pillarId": "`+pillarID+`"}]}}
	}`))
	require.NoError(t, err)
	_, err = e.Apply(context.Background(), cmd, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestReadDay(t *testing.T) {
	e, _ := newTestEngine(t)

	mustApply(t, e, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Due today"}]}},
		"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "x"}}]}
	}`, "")

	sections, err := e.ReadDay(context.Background(), testUser, testDate)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	var total int
	for _, s := range sections {
		total += len(s.Blocks)
	}
	assert.Equal(t, 2, total)
}
