package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	sqlDB, err := Open(context.Background(), path, 4, 2*time.Second)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func busyErr() error {
	return sqlite3.Error{Code: sqlite3.ErrBusy}
}

func TestWriterDoCommits(t *testing.T) {
	sqlDB := testDB(t)
	w := NewWriter(sqlDB, 3, time.Millisecond, zerolog.Nop())

	err := w.Do(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO t (v) VALUES ('a')`)
		return err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	var n int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row committed, got %d", n)
	}
}

func TestWriterDoRetriesOnBusy(t *testing.T) {
	w := NewWriter(testDB(t), 5, time.Millisecond, zerolog.Nop())

	calls := 0
	err := w.Do(context.Background(), func(tx *sql.Tx) error {
		calls++
		if calls < 3 {
			return busyErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestWriterDoExhaustsRetries(t *testing.T) {
	w := NewWriter(testDB(t), 3, time.Millisecond, zerolog.Nop())

	calls := 0
	err := w.Do(context.Background(), func(tx *sql.Tx) error {
		calls++
		return busyErr()
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestWriterDoDoesNotRetryOtherErrors(t *testing.T) {
	w := NewWriter(testDB(t), 5, time.Millisecond, zerolog.Nop())

	boom := errors.New("constraint violated")
	calls := 0
	err := w.Do(context.Background(), func(tx *sql.Tx) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-contention errors must not be retried, got %d attempts", calls)
	}
}

func TestWriterDoHonorsContext(t *testing.T) {
	w := NewWriter(testDB(t), 10, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Do(ctx, func(tx *sql.Tx) error {
			calls++
			return busyErr()
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestIsBusy(t *testing.T) {
	if !IsBusy(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Error("ErrBusy should be busy")
	}
	if !IsBusy(sqlite3.Error{Code: sqlite3.ErrLocked}) {
		t.Error("ErrLocked should be busy")
	}
	if IsBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}) {
		t.Error("constraint errors are not contention")
	}
	if IsBusy(errors.New("plain")) {
		t.Error("plain errors are not contention")
	}
}
