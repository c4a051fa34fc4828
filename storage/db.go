// Package storage keeps the sync run history in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDBPath = "timemachine.db"
	busyTimeoutMS = 5000
	schemaTimeout = 30 * time.Second
)

// Open opens (or creates) the run-history database.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = defaultDBPath
	}
	// WAL keeps status readers responsive while a run is being recorded.
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL", path, busyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	var journalMode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode=WAL;`).Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			result_type TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			commit_hash TEXT NOT NULL DEFAULT '',
			ready INTEGER NOT NULL DEFAULT 1,
			rsync_exit_code INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
