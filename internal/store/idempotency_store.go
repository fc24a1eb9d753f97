package store

import (
	"context"
	"fmt"
	"time"

	"github.com/planfold/planfold/internal/model"
)

// GetIdempotencyRecord retrieves the stored outcome for an owning key.
// Returns ErrNotFound when the key has never completed a request.
func (t *Tx) GetIdempotencyRecord(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT key, user_id, endpoint, date, request_hash, status_code, response_body, created_at
		FROM idempotency_keys WHERE key = ?`, key)
	if err != nil {
		return nil, notFoundOr(err, "getting idempotency record")
	}
	return &rec, nil
}

// InsertIdempotencyRecord persists a request outcome. The primary key
// constraint guarantees at-most-once creation; a concurrent duplicate
// surfaces as a constraint error and rolls the unit of work back.
func (t *Tx) InsertIdempotencyRecord(ctx context.Context, rec *model.IdempotencyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, user_id, endpoint, date, request_hash, status_code, response_body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key, rec.UserID, rec.Endpoint, rec.Date, rec.RequestHash,
		rec.StatusCode, rec.ResponseBody, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting idempotency record: %w", err)
	}
	return nil
}
