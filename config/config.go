// Package config loads and validates the timemachine YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultLogRetentionDays = 7

// SyncOptions exposes the readiness-engine tunables in the config file.
// Durations are whole seconds to keep the YAML approachable.
type SyncOptions struct {
	MaxWaitSeconds         int     `yaml:"max_wait_seconds"`
	PollIntervalSeconds    float64 `yaml:"poll_interval_seconds"`
	StabilityWindowSeconds int     `yaml:"stability_window_seconds"`
	StabilityThreshold     int     `yaml:"stability_threshold"`
	MaxFilesPerCall        int     `yaml:"max_files_per_call"`
	BatchSize              int     `yaml:"batch_size"`
}

// GitOptions controls the version-control step after a transfer.
type GitOptions struct {
	AutoPush bool   `yaml:"auto_push"`
	Remote   string `yaml:"remote"`
	Branch   string `yaml:"branch"`
}

// Config is the on-disk configuration.
type Config struct {
	SourceDir        string      `yaml:"source_dir"`
	DestDir          string      `yaml:"dest_dir"`
	ExcludePatterns  []string    `yaml:"exclude_patterns"`
	LogDir           string      `yaml:"log_dir"`
	LogRetentionDays int         `yaml:"log_retention_days"`
	StatusDir        string      `yaml:"status_dir"`
	Git              GitOptions  `yaml:"git"`
	Sync             SyncOptions `yaml:"sync"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	return &Config{
		ExcludePatterns:  []string{".git", ".DS_Store", ".icloud", ".obsidian/workspace"},
		LogRetentionDays: DefaultLogRetentionDays,
		Git: GitOptions{
			Remote: "origin",
			Branch: "main",
		},
		Sync: SyncOptions{
			MaxWaitSeconds:         60,
			PollIntervalSeconds:    2,
			StabilityWindowSeconds: 5,
			StabilityThreshold:     2,
			MaxFilesPerCall:        500,
			BatchSize:              25,
		},
	}
}

// Load reads path and overlays it onto the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.expandPaths()
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate fails fast on configurations a run could not recover from.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("config: source_dir is required")
	}
	if c.DestDir == "" {
		return fmt.Errorf("config: dest_dir is required")
	}
	if info, err := os.Stat(c.SourceDir); err != nil || !info.IsDir() {
		return fmt.Errorf("config: source_dir %s is not an existing directory", c.SourceDir)
	}
	if c.LogRetentionDays < 1 {
		return fmt.Errorf("config: log_retention_days must be at least 1, got %d", c.LogRetentionDays)
	}
	if c.Sync.MaxWaitSeconds <= 0 {
		return fmt.Errorf("config: sync.max_wait_seconds must be positive, got %d", c.Sync.MaxWaitSeconds)
	}
	if c.Sync.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: sync.poll_interval_seconds must be positive, got %v", c.Sync.PollIntervalSeconds)
	}
	if c.Sync.StabilityThreshold < 1 {
		return fmt.Errorf("config: sync.stability_threshold must be at least 1, got %d", c.Sync.StabilityThreshold)
	}
	return nil
}

// MaxWait and friends translate the YAML numbers into durations.
func (s SyncOptions) MaxWait() time.Duration { return time.Duration(s.MaxWaitSeconds) * time.Second }
func (s SyncOptions) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds * float64(time.Second))
}
func (s SyncOptions) StabilityWindow() time.Duration {
	return time.Duration(s.StabilityWindowSeconds) * time.Second
}

func (c *Config) expandPaths() {
	c.SourceDir = expandHome(c.SourceDir)
	c.DestDir = expandHome(c.DestDir)
	c.LogDir = expandHome(c.LogDir)
	c.StatusDir = expandHome(c.StatusDir)
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
