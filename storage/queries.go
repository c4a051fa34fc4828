package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded sync run.
type Run struct {
	ID            int64
	StartedAt     time.Time
	Duration      time.Duration
	Success       bool
	ResultType    string
	Message       string
	CommitHash    string
	Ready         bool
	RsyncExitCode int
}

// Store wraps the database with the queries the pipeline needs.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database at path.
func NewStore(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// NewStoreWithDB wraps an already-open database.
func NewStoreWithDB(db *sql.DB, path string) *Store {
	return &Store{db: db, path: path}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRun records one run and returns its row id.
func (s *Store) InsertRun(ctx context.Context, r Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, duration_ms, success, result_type, message, commit_hash, ready, rsync_exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`,
		r.StartedAt.UTC().Unix(),
		r.Duration.Milliseconds(),
		boolToInt(r.Success),
		r.ResultType,
		r.Message,
		r.CommitHash,
		boolToInt(r.Ready),
		r.RsyncExitCode,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run id: %w", err)
	}
	return id, nil
}

// LatestRun returns the most recent run; sql.ErrNoRows when the history is
// empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, duration_ms, success, result_type, message, commit_hash, ready, rsync_exit_code
		FROM runs ORDER BY started_at DESC, id DESC LIMIT 1;
	`)
	return scanRun(row)
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, success, result_type, message, commit_hash, ready, rsync_exit_code
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRuns deletes runs older than cutoff and reports how many went.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?;`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var startedAt, durationMS int64
	var success, ready int
	if err := row.Scan(&r.ID, &startedAt, &durationMS, &success, &r.ResultType,
		&r.Message, &r.CommitHash, &ready, &r.RsyncExitCode); err != nil {
		return r, err
	}
	r.StartedAt = time.Unix(startedAt, 0).UTC()
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Success = success != 0
	r.Ready = ready != 0
	return r, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
