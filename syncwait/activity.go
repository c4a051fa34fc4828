package syncwait

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RecentActivity returns the files under root whose modification time falls
// inside the trailing window. An empty result is the heuristic for "no writer
// is currently active": sync daemons create-then-fill files in multiple
// passes, so the absence of placeholders alone does not prove quiescence.
// Exclusion and best-effort-skip rules match the scanner's; a missing root
// yields an empty result.
func RecentActivity(root string, window time.Duration, excludePatterns []string) []string {
	if _, err := os.Stat(root); err != nil {
		return nil
	}

	cutoff := time.Now().Add(-window)
	var recent []string

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, pattern := range excludePatterns {
			if pattern != "" && strings.Contains(name, pattern) {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			recent = append(recent, path)
		}
		return nil
	})
	return recent
}
