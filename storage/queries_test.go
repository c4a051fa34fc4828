package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndLatestRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.LatestRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("empty history should report ErrNoRows, got %v", err)
	}

	in := Run{
		StartedAt:     time.Now().Truncate(time.Second),
		Duration:      3500 * time.Millisecond,
		Success:       true,
		ResultType:    "pushed",
		Message:       "12 files",
		CommitHash:    "deadbee",
		Ready:         true,
		RsyncExitCode: 0,
	}
	id, err := store.InsertRun(ctx, in)
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a row id")
	}

	out, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if !out.StartedAt.Equal(in.StartedAt.UTC()) || out.Duration != in.Duration ||
		out.ResultType != in.ResultType || out.CommitHash != in.CommitHash ||
		!out.Success || !out.Ready {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.InsertRun(ctx, Run{
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			ResultType: "no_changes",
			Success:    true,
			Ready:      true,
		})
		if err != nil {
			t.Fatalf("InsertRun %d: %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Fatalf("runs not newest-first: %v then %v", runs[i-1].StartedAt, runs[i].StartedAt)
		}
	}
}

func TestPruneRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := Run{StartedAt: time.Now().Add(-30 * 24 * time.Hour), ResultType: "pushed", Success: true}
	fresh := Run{StartedAt: time.Now(), ResultType: "pushed", Success: true}
	for _, r := range []Run{old, fresh} {
		if _, err := store.InsertRun(ctx, r); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}

	deleted, err := store.PruneRuns(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned run, got %d", deleted)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 remaining run, got %d", len(runs))
	}
}
