// Package syncwait decides when an externally-synced directory tree is safe
// to copy. A cloud daemon may still be downloading content into the tree, and
// no reliable completion signal exists, so the package combines placeholder
// detection, dataless-file metadata heuristics, batched materialization
// triggers, and a trailing stability window into a single bounded wait.
package syncwait

import (
	"fmt"
	"time"
)

// State is the coordinator's position in the readiness protocol.
type State int

const (
	StatePending State = iota
	StateDownloading
	StateStabilizing
	StateReady
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDownloading:
		return "downloading"
	case StateStabilizing:
		return "stabilizing"
	case StateReady:
		return "ready"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options are the tunables for one readiness wait. The zero value is not
// usable; start from DefaultOptions.
type Options struct {
	// ExcludePatterns are substring matches against file names; matching
	// entries are invisible to the scanner and the stability monitor.
	ExcludePatterns []string

	// MaxWait bounds the whole wait, measured from the start of the call.
	MaxWait time.Duration

	// PollInterval is the sleep between samples.
	PollInterval time.Duration

	// StabilityWindow is the trailing window for the recent-activity check.
	StabilityWindow time.Duration

	// StabilityThreshold is the number of consecutive clean samples required
	// before the tree is declared ready.
	StabilityThreshold int

	// SettleDelay is slept once before returning ready, and once per
	// materialization batch after the triggers are issued.
	SettleDelay time.Duration

	// MaxFilesPerCall caps how many dataless files one materialization pass
	// acts on; the excess is logged and left for the cloud daemon.
	MaxFilesPerCall int

	// BatchSize is the fan-out width of one materialization batch.
	BatchSize int

	// TriggerTimeout bounds each individual trigger or fallback-read command.
	TriggerTimeout time.Duration

	// VerifyAttempts, VerifyWait, VerifyBackoff and VerifyMaxWait control the
	// per-file verification retries after a batch settles: the wait starts at
	// VerifyWait and is multiplied by VerifyBackoff up to VerifyMaxWait.
	VerifyAttempts int
	VerifyWait     time.Duration
	VerifyBackoff  float64
	VerifyMaxWait  time.Duration
}

// DefaultOptions returns the tunables used by the backup pipeline.
func DefaultOptions() Options {
	return Options{
		ExcludePatterns:    []string{placeholderSuffix, ".DS_Store"},
		MaxWait:            60 * time.Second,
		PollInterval:       2 * time.Second,
		StabilityWindow:    5 * time.Second,
		StabilityThreshold: 2,
		SettleDelay:        1 * time.Second,
		MaxFilesPerCall:    500,
		BatchSize:          25,
		TriggerTimeout:     10 * time.Second,
		VerifyAttempts:     4,
		VerifyWait:         500 * time.Millisecond,
		VerifyBackoff:      1.5,
		VerifyMaxWait:      5 * time.Second,
	}
}

// Validate reports configuration errors. These are the only failures the
// package surfaces as errors; everything at runtime degrades locally.
func (o Options) Validate() error {
	if o.MaxWait <= 0 {
		return fmt.Errorf("syncwait: MaxWait must be positive, got %v", o.MaxWait)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("syncwait: PollInterval must be positive, got %v", o.PollInterval)
	}
	if o.StabilityThreshold < 1 {
		return fmt.Errorf("syncwait: StabilityThreshold must be at least 1, got %d", o.StabilityThreshold)
	}
	if o.StabilityWindow < 0 {
		return fmt.Errorf("syncwait: StabilityWindow must not be negative, got %v", o.StabilityWindow)
	}
	if o.MaxFilesPerCall < 0 || o.BatchSize < 0 {
		return fmt.Errorf("syncwait: MaxFilesPerCall and BatchSize must not be negative")
	}
	return nil
}
