// Package testutil provides shared helpers for store-backed tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/internal/model"
	"github.com/planfold/planfold/internal/store"
)

// NewTestStore creates an in-memory Store with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedPillar creates a pillar for the user and returns its id.
func SeedPillar(t *testing.T, s *store.Store, userID, name string) string {
	t.Helper()

	id, err := s.CreatePillar(context.Background(), model.Pillar{
		UserID: userID,
		Name:   name,
	})
	if err != nil {
		t.Fatalf("seeding pillar: %v", err)
	}
	return id
}

// SeedTodo inserts a todo directly and returns it. Zero-valued fields
// get the same defaults the engine would use.
func SeedTodo(t *testing.T, s *store.Store, todo model.Todo) *model.Todo {
	t.Helper()

	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	if todo.SectionID == "" {
		todo.SectionID = model.SectionAfternoon
	}
	if todo.Priority == 0 {
		todo.Priority = model.PriorityDefault
	}
	if todo.Status == "" {
		todo.Status = model.TodoStatusActive
	}
	if todo.Labels == nil {
		todo.Labels = []string{}
	}
	now := time.Now().UTC()
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = now
	}

	err := s.RunInTx(context.Background(), func(tx *store.Tx) error {
		return tx.InsertTodo(context.Background(), &todo)
	})
	if err != nil {
		t.Fatalf("seeding todo: %v", err)
	}
	return &todo
}
