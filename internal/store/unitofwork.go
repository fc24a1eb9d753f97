package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// txMaxAttempts bounds how often a unit of work is retried when a
// concurrent writer holds the database lock.
const txMaxAttempts = 5

// Tx scopes all entity reads and writes to one database transaction.
type Tx struct {
	tx *sqlx.Tx
}

// RunInTx executes fn inside a single write transaction. On commit
// failure or a busy database the whole callback is retried, so fn must
// be side-effect free outside its Tx. A returned error rolls everything
// back; the request either commits entirely or has no effect.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, false, fn)
}

// RunInReadTx executes fn inside a read-only transaction.
func (s *Store) RunInReadTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, readOnly bool, fn func(tx *Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := s.attempt(ctx, readOnly, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		lastErr = err

		select {
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", lastErr)
}

func (s *Store) attempt(ctx context.Context, readOnly bool, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isBusy reports whether err indicates a transient SQLite lock conflict.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
