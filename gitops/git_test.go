package gitops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	if !Available() {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if err := InitRepo(dir); err != nil {
		t.Fatalf("InitRepo: %v", err)
	}
	// Commits need an identity; scope it to the test repo.
	for _, kv := range [][2]string{{"user.name", "Test"}, {"user.email", "test@example.com"}} {
		if _, err := run(context.Background(), dir, "config", kv[0], kv[1]); err != nil {
			t.Fatalf("git config %s: %v", kv[0], err)
		}
	}
	return dir
}

func TestIsRepo(t *testing.T) {
	if !Available() {
		t.Skip("git not installed")
	}
	plain := t.TempDir()
	if IsRepo(plain) {
		t.Fatal("plain directory reported as repo")
	}
	repo := initTestRepo(t)
	if !IsRepo(repo) {
		t.Fatal("initialized directory not reported as repo")
	}
}

func TestCommitFlow(t *testing.T) {
	dir := initTestRepo(t)

	changed, err := HasChanges(dir)
	if err != nil {
		t.Fatalf("HasChanges: %v", err)
	}
	if changed {
		t.Fatal("fresh repo should have no changes")
	}
	if HasCommits(dir) {
		t.Fatal("fresh repo should have no commits")
	}

	if err := os.WriteFile(filepath.Join(dir, "note.md"), []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	changed, err = HasChanges(dir)
	if err != nil {
		t.Fatalf("HasChanges: %v", err)
	}
	if !changed {
		t.Fatal("expected pending changes")
	}

	ctx := context.Background()
	if err := AddAll(ctx, dir); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	hash, err := Commit(ctx, dir, "backup: test")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(hash) < 7 {
		t.Fatalf("suspicious commit hash %q", hash)
	}
	if !HasCommits(dir) {
		t.Fatal("commit not recorded")
	}

	branch, err := CurrentBranch(dir)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Fatalf("expected main branch, got %q", branch)
	}
}

func TestRemoteURLRoundTrip(t *testing.T) {
	dir := initTestRepo(t)

	if url := RemoteURL(dir, "origin"); url != "" {
		t.Fatalf("fresh repo should have no origin, got %q", url)
	}
	if err := SetRemoteURL(dir, "origin", "https://example.com/vault.git"); err != nil {
		t.Fatalf("SetRemoteURL add: %v", err)
	}
	if url := RemoteURL(dir, "origin"); url != "https://example.com/vault.git" {
		t.Fatalf("unexpected remote url %q", url)
	}
	if err := SetRemoteURL(dir, "origin", "https://example.com/other.git"); err != nil {
		t.Fatalf("SetRemoteURL update: %v", err)
	}
	if url := RemoteURL(dir, "origin"); url != "https://example.com/other.git" {
		t.Fatalf("remote url not updated, got %q", url)
	}
}
