package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/internal/model"
)

// PillarExists reports whether the pillar exists and belongs to userID.
func (t *Tx) PillarExists(ctx context.Context, userID, id string) (bool, error) {
	var count int
	err := t.tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM pillars WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("checking pillar %s: %w", id, err)
	}
	return count > 0, nil
}

// CreatePillar inserts a pillar. Generates a UUID if ID is empty.
// Pillar CRUD proper lives in a sibling service against the same
// storage; this exists for seeding and tests.
func (s *Store) CreatePillar(ctx context.Context, pillar model.Pillar) (string, error) {
	if pillar.ID == "" {
		pillar.ID = uuid.New().String()
	}
	if pillar.CreatedAt.IsZero() {
		pillar.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pillars (id, user_id, name, color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		pillar.ID, pillar.UserID, pillar.Name, pillar.Color, pillar.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("creating pillar: %w", err)
	}
	return pillar.ID, nil
}
