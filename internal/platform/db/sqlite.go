// Package db manages the embedded SQLite store shared by every repository:
// connection pool setup, schema migrations, and the bounded-retry writer that
// serializes mutations against the single-writer database file.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if necessary) the SQLite database at path and returns
// a bounded connection pool. WAL journaling keeps readers unblocked while a
// writer holds the file lock; the busy timeout is the first line of defense
// against SQLITE_BUSY before the Writer's retry loop kicks in.
func Open(ctx context.Context, path string, maxConns int, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		path, busyTimeout.Milliseconds())

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}

	return sqlDB, nil
}
