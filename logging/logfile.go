// Package logging manages the daily run-log files and their retention.
// Structured process logging goes through go_logger; these files are the
// durable per-day record of what each backup run did.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mordilloSan/go_logger/logger"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".log"
	dateLayout = "2006-01-02"
)

// FilePath returns today's log file path inside dir.
func FilePath(dir string) string {
	return FilePathFor(dir, time.Now())
}

// FilePathFor returns the log file path for a given day.
func FilePathFor(dir string, day time.Time) string {
	return filepath.Join(dir, filePrefix+day.Format(dateLayout)+fileSuffix)
}

// AppendRun appends one timestamped line to today's log file, creating the
// directory and file as needed.
func AppendRun(dir, line string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(FilePath(dir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	stamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "%s %s\n", stamp, line); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	return nil
}

// Rotate deletes log files whose embedded date is older than retentionDays.
// Files that do not follow the backup-YYYY-MM-DD.log convention are left
// alone. Returns how many files were removed.
func Rotate(dir string, retentionDays int) (int, error) {
	if dir == "" || retentionDays < 1 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read log dir: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		day, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				logger.Warnf("Failed to remove expired log %s: %v", name, err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("Removed %d expired log file(s) from %s", removed, dir)
	}
	return removed, nil
}
