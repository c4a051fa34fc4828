// Package status persists the last-sync record consumed by status displays.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const statusFileName = "last_sync.json"

// Result types a sync run can end with.
const (
	ResultPushed    = "pushed"
	ResultNoChanges = "no_changes"
	ResultCommitted = "committed"
	ResultFailed    = "failed"
)

// SyncStatus is the outcome of the most recent sync run.
type SyncStatus struct {
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	ResultType string    `json:"result_type"`
	Message    string    `json:"message"`
	CommitHash string    `json:"commit_hash,omitempty"`
}

// DefaultDir returns the per-user data directory for the status file.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "timemachine")
	}
	return filepath.Join(home, ".local", "share", "timemachine")
}

// Save writes the record atomically into dir.
func Save(dir string, s SyncStatus) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir status dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	path := filepath.Join(dir, statusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace status: %w", err)
	}
	return nil
}

// Load reads the record from dir. A missing file is returned as-is so callers
// can distinguish "never synced" via os.IsNotExist.
func Load(dir string) (SyncStatus, error) {
	var s SyncStatus
	data, err := os.ReadFile(filepath.Join(dir, statusFileName))
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse status: %w", err)
	}
	return s, nil
}

// TimeAgo renders the record's age for human display.
func (s SyncStatus) TimeAgo() string {
	delta := time.Since(s.Timestamp)
	switch {
	case delta < time.Minute:
		return "Just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	case delta < 48*time.Hour:
		return "Yesterday"
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours())/24)
	}
}
