package syncwait

import (
	"context"
	"fmt"
	"time"

	"github.com/mordilloSan/go_logger/logger"

	"github.com/StrongTechProject/timemachine/internal/retry"
)

// Materializer triggers downloads for a set of dataless files and verifies
// the outcomes. It holds no state across calls and is safe to invoke
// repeatedly; already-resident inputs are immediate successes.
type Materializer struct {
	Caps    Capabilities
	Scanner *Scanner
	Opts    Options
}

// Materialize processes up to Opts.MaxFilesPerCall files from files in stable
// order. For each batch of Opts.BatchSize it fans out one trigger per file
// (failures ignored at trigger time), sleeps the settle delay once for the
// whole batch, then verifies each file independently with backoff retries.
// The returned counts always sum to the number of files acted on.
func (m *Materializer) Materialize(ctx context.Context, files []string) (succeeded, failed int) {
	if len(files) == 0 {
		return 0, 0
	}

	toProcess := files
	if m.Opts.MaxFilesPerCall > 0 && len(toProcess) > m.Opts.MaxFilesPerCall {
		logger.Warnf("Materializing first %d of %d dataless files; remainder deferred to the sync daemon",
			m.Opts.MaxFilesPerCall, len(files))
		toProcess = toProcess[:m.Opts.MaxFilesPerCall]
	}

	batchSize := m.Opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(toProcess)
	}

	logger.Infof("Materializing %d dataless files (strategy=%s batch=%d)",
		len(toProcess), m.Caps.Strategy, batchSize)

	for start := 0; start < len(toProcess); start += batchSize {
		end := start + batchSize
		if end > len(toProcess) {
			end = len(toProcess)
		}
		batch := toProcess[start:end]

		ok, bad := m.processBatch(ctx, batch)
		succeeded += ok
		failed += bad
	}

	if failed > 0 {
		logger.Warnf("Materialization finished: %d downloaded, %d still dataless", succeeded, failed)
	} else {
		logger.Infof("Materialization finished: %d downloaded", succeeded)
	}
	return succeeded, failed
}

func (m *Materializer) processBatch(ctx context.Context, batch []string) (succeeded, failed int) {
	// Fan-out: issue every trigger back-to-back, then pay the settle delay
	// once for the whole batch instead of once per file.
	for _, path := range batch {
		if err := m.Caps.trigger(ctx, m.Opts.TriggerTimeout, path); err != nil {
			logger.Debugf("Materialization trigger failed for %s: %v", path, err)
		}
	}

	if m.Opts.SettleDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(m.Opts.SettleDelay):
		}
	}

	for _, path := range batch {
		if m.verify(ctx, path) {
			succeeded++
		} else {
			logger.Debugf("File still dataless after verification retries: %s", path)
			failed++
		}
	}
	return succeeded, failed
}

// verify re-stats path until it is no longer dataless or the retry budget is
// spent. A path that cannot be stat'd at all counts as failed: residency
// cannot be confirmed.
func (m *Materializer) verify(ctx context.Context, path string) bool {
	cfg := retry.Config{
		MaxAttempts: m.Opts.VerifyAttempts,
		InitialWait: m.Opts.VerifyWait,
		MaxWait:     m.Opts.VerifyMaxWait,
		Multiplier:  m.Opts.VerifyBackoff,
	}
	err := retry.Do(ctx, cfg, func() error {
		dataless, err := m.Scanner.IsDataless(path)
		if err != nil {
			return retry.Transient(fmt.Errorf("verify %s: %w", path, err))
		}
		if dataless {
			return retry.Transient(fmt.Errorf("still dataless: %s", path))
		}
		return nil
	})
	return err == nil
}
