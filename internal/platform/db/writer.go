package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrLockTimeout is returned when a mutation could not acquire the database
// write lock within the configured retry budget.
var ErrLockTimeout = errors.New("database write lock timeout")

const (
	DefaultWriteAttempts = 5
	DefaultWriteDelay    = 100 * time.Millisecond
)

// Writer funnels every mutating call through a bounded retry loop. SQLite
// allows a single writer at a time; concurrent mutations from other pool
// connections surface as SQLITE_BUSY/SQLITE_LOCKED, which are retried with a
// fixed delay up to the attempt bound, then surfaced as ErrLockTimeout.
// All repositories share one Writer so the retry policy lives in one place.
type Writer struct {
	db       *sql.DB
	attempts int
	delay    time.Duration
	log      zerolog.Logger
}

func NewWriter(sqlDB *sql.DB, attempts int, delay time.Duration, log zerolog.Logger) *Writer {
	if attempts <= 0 {
		attempts = DefaultWriteAttempts
	}
	if delay <= 0 {
		delay = DefaultWriteDelay
	}
	return &Writer{db: sqlDB, attempts: attempts, delay: delay, log: log.With().Str("component", "db_writer").Logger()}
}

// Do runs fn inside a transaction, retrying the whole transaction on write
// contention. fn must be safe to re-run: each retry sees a fresh transaction
// and nothing from a failed attempt is committed.
func (w *Writer) Do(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.delay):
			}
		}

		err := w.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) {
			return err
		}

		lastErr = err
		w.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", w.attempts).
			Err(err).
			Msg("database locked, retrying write")
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrLockTimeout, w.attempts, lastErr)
}

func (w *Writer) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsBusy reports whether err is SQLite write contention (another connection
// holds the file or table lock).
func IsBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
