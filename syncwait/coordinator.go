package syncwait

import (
	"context"
	"time"

	"github.com/mordilloSan/go_logger/logger"
)

// Coordinator runs the readiness protocol for one tree. Each Wait call is a
// fresh, self-contained poll loop; nothing carries over between invocations.
type Coordinator struct {
	root         string
	opts         Options
	scanner      *Scanner
	materializer *Materializer
}

// NewCoordinator validates opts and wires the scanner and materializer.
// Capabilities come from the caller so strategy selection happens once at
// process startup, not inside the loop.
func NewCoordinator(root string, opts Options, caps Capabilities) (*Coordinator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	scanner := NewScanner(opts.ExcludePatterns)
	return &Coordinator{
		root:    root,
		opts:    opts,
		scanner: scanner,
		materializer: &Materializer{
			Caps:    caps,
			Scanner: scanner,
			Opts:    opts,
		},
	}, nil
}

// Wait blocks until the tree is safe to copy or the deadline expires. A
// false return is a normal outcome, not an error: the caller proceeds with a
// warning. The priority order per sample is placeholders (cheapest, strongest
// non-residency signal), then dataless files, then recent write activity;
// only a run of clean samples of length StabilityThreshold yields true.
func (c *Coordinator) Wait(ctx context.Context) bool {
	logger.Infof("Checking sync readiness of %s (max wait %v)", c.root, c.opts.MaxWait)

	start := time.Now()
	stableCount := 0
	materializeAttempted := false

	for {
		elapsed := time.Since(start)
		if elapsed >= c.opts.MaxWait {
			logger.Warnf("Readiness wait %s after %v for %s; proceeding anyway",
				StateTimedOut, c.opts.MaxWait, c.root)
			return false
		}
		if ctx.Err() != nil {
			logger.Warnf("Readiness wait cancelled after %v: %v",
				elapsed.Truncate(time.Millisecond), ctx.Err())
			return false
		}

		placeholders, dataless := c.scanner.Scan(c.root)

		if len(placeholders) > 0 {
			stableCount = 0
			logger.Infof("%s: %d placeholder files awaiting download (%.0fs elapsed)",
				StatePending, len(placeholders), elapsed.Seconds())
			if !c.sleep(ctx) {
				return false
			}
			continue
		}

		if len(dataless) > 0 {
			if !materializeAttempted {
				materializeAttempted = true
				ok, bad := c.materializer.Materialize(ctx, dataless)
				logger.Infof("%s: materialization pass complete, %d resident, %d failed (%.0fs elapsed)",
					StateDownloading, ok, bad, time.Since(start).Seconds())
				stableCount = 0
				if !c.sleep(ctx) {
					return false
				}
				continue
			}
			// One pass per invocation bounds the worst case; stragglers must
			// not block readiness forever.
			logger.Warnf("%d files remain dataless after materialization; continuing with stability check",
				len(dataless))
		}

		recent := RecentActivity(c.root, c.opts.StabilityWindow, c.opts.ExcludePatterns)
		if len(recent) > 0 {
			stableCount = 0
			logger.Infof("%s: %d files recently modified (%.0fs elapsed)",
				StateStabilizing, len(recent), elapsed.Seconds())
			if !c.sleep(ctx) {
				return false
			}
			continue
		}

		stableCount++
		if stableCount >= c.opts.StabilityThreshold {
			logger.Infof("Tree %s is %s after %v (%d stable samples)",
				c.root, StateReady, time.Since(start).Truncate(time.Millisecond), stableCount)
			// Final settle margin for the filesystem.
			if c.opts.SettleDelay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(c.opts.SettleDelay):
				}
			}
			return true
		}
		logger.Debugf("%s: stable sample %d/%d for %s",
			StateStabilizing, stableCount, c.opts.StabilityThreshold, c.root)
		if !c.sleep(ctx) {
			return false
		}
	}
}

// sleep pauses one poll interval; false means the context was cancelled.
func (c *Coordinator) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		logger.Warnf("Readiness wait cancelled: %v", ctx.Err())
		return false
	case <-time.After(c.opts.PollInterval):
		return true
	}
}
