package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.SourceDir = t.TempDir()
	cfg.DestDir = t.TempDir()
	return cfg
}

func TestDefaultsAreValidOncePathsSet(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with real paths should validate: %v", err)
	}
	if cfg.LogRetentionDays != DefaultLogRetentionDays {
		t.Fatalf("expected default retention %d, got %d", DefaultLogRetentionDays, cfg.LogRetentionDays)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := validConfig(t)
	cfg.Git.AutoPush = true
	cfg.Sync.StabilityThreshold = 4

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SourceDir != cfg.SourceDir || loaded.DestDir != cfg.DestDir {
		t.Fatalf("paths did not round-trip: %+v", loaded)
	}
	if !loaded.Git.AutoPush || loaded.Sync.StabilityThreshold != 4 {
		t.Fatalf("options did not round-trip: %+v", loaded)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	minimal := "source_dir: /tmp/vault\ndest_dir: /tmp/backup\n"
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.MaxWaitSeconds != 60 || cfg.Git.Remote != "origin" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.ExcludePatterns) == 0 {
		t.Fatal("default exclude patterns missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing source", func(c *Config) { c.SourceDir = "" }, "source_dir"},
		{"missing dest", func(c *Config) { c.DestDir = "" }, "dest_dir"},
		{"absent source dir", func(c *Config) { c.SourceDir = "/definitely/not/here" }, "source_dir"},
		{"zero retention", func(c *Config) { c.LogRetentionDays = 0 }, "log_retention_days"},
		{"zero max wait", func(c *Config) { c.Sync.MaxWaitSeconds = 0 }, "max_wait_seconds"},
		{"zero poll interval", func(c *Config) { c.Sync.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"zero threshold", func(c *Config) { c.Sync.StabilityThreshold = 0 }, "stability_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSyncOptionDurations(t *testing.T) {
	s := SyncOptions{MaxWaitSeconds: 90, PollIntervalSeconds: 0.5, StabilityWindowSeconds: 5}
	if s.MaxWait() != 90*time.Second {
		t.Fatalf("MaxWait = %v", s.MaxWait())
	}
	if s.PollInterval() != 500*time.Millisecond {
		t.Fatalf("PollInterval = %v", s.PollInterval())
	}
	if s.StabilityWindow() != 5*time.Second {
		t.Fatalf("StabilityWindow = %v", s.StabilityWindow())
	}
}
