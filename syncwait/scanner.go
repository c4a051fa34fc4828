package syncwait

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// placeholderSuffix is the legacy cloud-marker naming convention: a file named
// "note.md.icloud" stands in for "note.md" until its content is downloaded.
const placeholderSuffix = ".icloud"

// DatalessClassifier reports whether a stat snapshot describes a file whose
// content is stored remotely only. It is a best-effort heuristic over
// undocumented OS state, so it stays replaceable rather than hardcoded.
type DatalessClassifier func(info os.FileInfo) bool

// PlatformDataless is the default classifier: the platform's
// offline/compressed attribute flag is set, zero physical blocks are
// allocated, and the logical size is greater than zero. All three signals
// must agree; on platforms without the attribute it never fires and the
// scanner degrades to placeholder-only detection.
func PlatformDataless(info os.FileInfo) bool {
	flagged, blocks, ok := statSignals(info.Sys())
	if !ok {
		return false
	}
	return flagged && blocks == 0 && info.Size() > 0
}

// Scanner classifies the files of a tree in one stat pass per entry.
type Scanner struct {
	ExcludePatterns []string
	Dataless        DatalessClassifier
}

// NewScanner returns a scanner with the platform-default dataless classifier.
func NewScanner(excludePatterns []string) *Scanner {
	return &Scanner{
		ExcludePatterns: excludePatterns,
		Dataless:        PlatformDataless,
	}
}

// Scan walks root and partitions its files into legacy placeholders and
// dataless files. A missing root means there is nothing to wait for, so both
// results are empty. Per-entry failures skip the entry; they are never fatal
// to the scan. Scan mutates nothing and is cheap enough to run every poll.
func (s *Scanner) Scan(root string) (placeholders, dataless []string) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entry vanished or is unreadable; move on.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, placeholderSuffix) {
			placeholders = append(placeholders, path)
			return nil
		}
		if s.excluded(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if s.classify(info) {
			dataless = append(dataless, path)
		}
		return nil
	})
	return placeholders, dataless
}

// IsDataless re-stats a single path and reapplies the classifier. Used by the
// materializer to verify outcomes; a stat failure reports not-dataless along
// with the error so callers can decide how to count it.
func (s *Scanner) IsDataless(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	return s.classify(info), nil
}

func (s *Scanner) classify(info os.FileInfo) bool {
	if s.Dataless != nil {
		return s.Dataless(info)
	}
	return PlatformDataless(info)
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.ExcludePatterns {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}
