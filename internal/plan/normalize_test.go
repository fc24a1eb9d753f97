package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, body string) (*Command, error) {
	t.Helper()
	return Normalize("user-1", "2025-06-01", strings.NewReader(body))
}

func TestNormalizeDefaults(t *testing.T) {
	cmd, err := normalize(t, `{
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Buy milk"}]}}
	}`)
	require.NoError(t, err)

	assert.Equal(t, ModeReplace, cmd.Mode)
	assert.Equal(t, "user-1", cmd.UserID)
	assert.Equal(t, "2025-06-01", cmd.Date)
	require.Len(t, cmd.TodoUpserts, 1)
	assert.Equal(t, "c1", cmd.TodoUpserts[0].ClientID)
	require.NotNil(t, cmd.TodoUpserts[0].Content)
	assert.Equal(t, "Buy milk", *cmd.TodoUpserts[0].Content)
}

func TestNormalizeSplitsProjectionsFromNatives(t *testing.T) {
	cmd, err := normalize(t, `{
		"mode": "merge",
		"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "Run"}]}},
		"day": {"blocks": [
			{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "hi"}},
			{"typeId": "todo", "sectionId": "evening", "order": 2, "todoRef": {"clientId": "c1"}}
		]}
	}`)
	require.NoError(t, err)

	assert.Equal(t, ModeMerge, cmd.Mode)
	require.Len(t, cmd.Natives, 1)
	assert.Equal(t, "note", cmd.Natives[0].TypeID)
	assert.Equal(t, "user", cmd.Natives[0].Source)
	require.Len(t, cmd.Projections, 1)
	assert.Equal(t, "c1", cmd.Projections[0].Ref.ClientID)
	assert.Equal(t, "evening", cmd.Projections[0].SectionID)
}

func TestNormalizeDedupesLabels(t *testing.T) {
	cmd, err := normalize(t, `{
		"primitives": {"todos": {"upsert": [
			{"clientId": "c1", "content": "x", "labels": ["home", "Home", "home", "work"]}
		]}}
	}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "Home", "work"}, cmd.TodoUpserts[0].Labels)
}

func TestNormalizeRejections(t *testing.T) {
	longContent := strings.Repeat("a", 501)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "invalid mode",
			body:  `{"mode": "upsert", "day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "x"}}]}}`,
			field: "mode",
		},
		{
			name:  "unknown top-level field",
			body:  `{"extra": 1, "day": {"blocks": []}}`,
			field: "body",
		},
		{
			name:  "unknown nested field",
			body:  `{"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "color": "red"}]}}`,
			field: "body",
		},
		{
			name:  "empty request",
			body:  `{"day": {"blocks": []}}`,
			field: "body",
		},
		{
			name:  "todo upsert without id or clientId",
			body:  `{"primitives": {"todos": {"upsert": [{"content": "x"}]}}}`,
			field: "primitives.todos.upsert[0]",
		},
		{
			name:  "content too long",
			body:  `{"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "` + longContent + `"}]}}}`,
			field: "primitives.todos.upsert[0].content",
		},
		{
			name:  "priority out of range",
			body:  `{"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x", "priority": 5}]}}}`,
			field: "primitives.todos.upsert[0].priority",
		},
		{
			name:  "bad due date",
			body:  `{"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x", "dueDate": "June 1st"}]}}}`,
			field: "primitives.todos.upsert[0].dueDate",
		},
		{
			name:  "duplicate clientId",
			body:  `{"primitives": {"todos": {"upsert": [{"clientId": "c1", "content": "x"}, {"clientId": "c1", "content": "y"}]}}}`,
			field: "primitives.todos.upsert[1].clientId",
		},
		{
			name:  "duplicate todo id",
			body:  `{"primitives": {"todos": {"upsert": [{"id": "t1", "content": "x"}, {"id": "t1", "content": "y"}]}}}`,
			field: "primitives.todos.upsert[1].id",
		},
		{
			name:  "block missing order",
			body:  `{"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "data": {"text": "x"}}]}}`,
			field: "day.blocks[0].order",
		},
		{
			name:  "block unknown section",
			body:  `{"day": {"blocks": [{"typeId": "note", "sectionId": "night", "order": 0, "data": {"text": "x"}}]}}`,
			field: "day.blocks[0].sectionId",
		},
		{
			name:  "legacy alias rejected",
			body:  `{"day": {"blocks": [{"typeId": "text", "sectionId": "morning", "order": 0, "data": {"text": "x"}}]}}`,
			field: "day.blocks[0].typeId",
		},
		{
			name:  "disabled native type rejected",
			body:  `{"day": {"blocks": [{"typeId": "sleep", "sectionId": "morning", "order": 0, "data": {}}]}}`,
			field: "day.blocks[0].typeId",
		},
		{
			name:  "todo entry without todoRef",
			body:  `{"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0}]}}`,
			field: "day.blocks[0].todoRef",
		},
		{
			name:  "todoRef with both id and clientId",
			body:  `{"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"id": "a", "clientId": "b"}}]}}`,
			field: "day.blocks[0].todoRef",
		},
		{
			name:  "todoRef clientId without matching upsert",
			body:  `{"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"clientId": "ghost"}}]}}`,
			field: "day.blocks[0].todoRef.clientId",
		},
		{
			name: "duplicate projection target",
			body: `{"day": {"blocks": [
				{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"id": "t1"}},
				{"typeId": "todo", "sectionId": "evening", "order": 1, "todoRef": {"id": "t1"}}
			]}}`,
			field: "day.blocks[1].todoRef",
		},
		{
			name:  "projection entry with extra payload",
			body:  `{"day": {"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "title": "x", "todoRef": {"id": "t1"}}]}}`,
			field: "day.blocks[0]",
		},
		{
			name:  "deleteBlockIds outside append",
			body:  `{"mode": "replace", "day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "x"}}], "deleteBlockIds": ["b1"]}}`,
			field: "day.deleteBlockIds",
		},
		{
			name:  "unknown block source",
			body:  `{"day": {"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "source": "robot", "data": {"text": "x"}}]}}`,
			field: "day.blocks[0].source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, tt.body)
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNormalizeLegacyBlocks(t *testing.T) {
	cmd, err := NormalizeLegacyBlocks("user-1", "2025-06-01", strings.NewReader(`{
		"mode": "append",
		"blocks": [{"typeId": "note", "sectionId": "morning", "order": 0, "data": {"text": "x"}}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, ModeAppend, cmd.Mode)
	assert.Len(t, cmd.Natives, 1)
	assert.Empty(t, cmd.TodoUpserts)

	_, err = NormalizeLegacyBlocks("user-1", "2025-06-01", strings.NewReader(`{
		"blocks": [{"typeId": "todo", "sectionId": "morning", "order": 0, "todoRef": {"id": "t1"}}]
	}`))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "blocks[0].typeId", vErr.Field)
}
