// Package cmd wires the readiness engine, transfer, git, and record keeping
// into runnable backup pipelines.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mordilloSan/go_logger/logger"

	"github.com/StrongTechProject/timemachine/config"
	"github.com/StrongTechProject/timemachine/gitops"
	"github.com/StrongTechProject/timemachine/logging"
	"github.com/StrongTechProject/timemachine/status"
	"github.com/StrongTechProject/timemachine/storage"
	"github.com/StrongTechProject/timemachine/syncwait"
	"github.com/StrongTechProject/timemachine/transfer"
)

// SyncResult summarizes one backup run.
type SyncResult struct {
	Success       bool
	Ready         bool
	ResultType    string
	Message       string
	CommitHash    string
	RsyncExitCode int
	Duration      time.Duration
}

// waitOptions maps the config tunables onto the readiness engine.
func waitOptions(cfg *config.Config) syncwait.Options {
	opts := syncwait.DefaultOptions()
	opts.ExcludePatterns = cfg.ExcludePatterns
	opts.MaxWait = cfg.Sync.MaxWait()
	opts.PollInterval = cfg.Sync.PollInterval()
	opts.StabilityWindow = cfg.Sync.StabilityWindow()
	opts.StabilityThreshold = cfg.Sync.StabilityThreshold
	if cfg.Sync.MaxFilesPerCall > 0 {
		opts.MaxFilesPerCall = cfg.Sync.MaxFilesPerCall
	}
	if cfg.Sync.BatchSize > 0 {
		opts.BatchSize = cfg.Sync.BatchSize
	}
	return opts
}

// RunSync executes one full backup: readiness wait, rsync, git, records.
// Pipeline errors end up in the result rather than aborting the caller; only
// configuration problems return an error.
func RunSync(ctx context.Context, cfg *config.Config, caps syncwait.Capabilities, store *storage.Store) (SyncResult, error) {
	start := time.Now()

	coordinator, err := syncwait.NewCoordinator(cfg.SourceDir, waitOptions(cfg), caps)
	if err != nil {
		return SyncResult{}, fmt.Errorf("configure readiness wait: %w", err)
	}

	res := SyncResult{Ready: coordinator.Wait(ctx)}
	if !res.Ready {
		logger.Warnf("Source tree not confirmed ready; copying current state anyway")
	}

	rsyncRes, err := transfer.Run(ctx, cfg.SourceDir, cfg.DestDir, cfg.ExcludePatterns)
	res.RsyncExitCode = rsyncRes.ExitCode
	if err != nil {
		res.ResultType = status.ResultFailed
		res.Message = fmt.Sprintf("transfer failed: %v", err)
		finishRun(ctx, cfg, store, &res, start)
		return res, nil
	}

	res = commitStage(ctx, cfg, res)
	finishRun(ctx, cfg, store, &res, start)
	return res, nil
}

// commitStage stages and commits the destination repo, pushing when enabled.
func commitStage(ctx context.Context, cfg *config.Config, res SyncResult) SyncResult {
	if !gitops.Available() || !gitops.IsRepo(cfg.DestDir) {
		res.Success = true
		res.ResultType = status.ResultNoChanges
		res.Message = "transfer complete (destination is not a git repository)"
		return res
	}

	changed, err := gitops.HasChanges(cfg.DestDir)
	if err != nil {
		res.ResultType = status.ResultFailed
		res.Message = fmt.Sprintf("git status failed: %v", err)
		return res
	}
	if !changed {
		res.Success = true
		res.ResultType = status.ResultNoChanges
		res.Message = "no changes since last backup"
		logger.Infof("No changes to commit")
		return res
	}

	if err := gitops.AddAll(ctx, cfg.DestDir); err != nil {
		res.ResultType = status.ResultFailed
		res.Message = fmt.Sprintf("git add failed: %v", err)
		return res
	}
	message := fmt.Sprintf("backup: %s", time.Now().Format("2006-01-02 15:04:05"))
	hash, err := gitops.Commit(ctx, cfg.DestDir, message)
	if err != nil {
		res.ResultType = status.ResultFailed
		res.Message = fmt.Sprintf("git commit failed: %v", err)
		return res
	}
	res.CommitHash = hash
	res.Success = true
	res.ResultType = status.ResultCommitted
	res.Message = fmt.Sprintf("committed %s", hash[:7])
	logger.Infof("Committed backup as %s", hash[:7])

	if cfg.Git.AutoPush {
		if err := gitops.Push(ctx, cfg.DestDir, cfg.Git.Remote, cfg.Git.Branch); err != nil {
			// The backup itself is safe locally; a failed push is a warning.
			logger.Warnf("Push failed (backup is committed locally): %v", err)
			res.Message = fmt.Sprintf("committed %s, push failed", hash[:7])
			return res
		}
		res.ResultType = status.ResultPushed
		res.Message = fmt.Sprintf("pushed %s to %s/%s", hash[:7], cfg.Git.Remote, cfg.Git.Branch)
	}
	return res
}

// finishRun writes every record of the run: daily log line, log rotation,
// last-sync JSON, and the history row. Record failures are warnings; the
// backup outcome stands.
func finishRun(ctx context.Context, cfg *config.Config, store *storage.Store, res *SyncResult, start time.Time) {
	res.Duration = time.Since(start)

	line := fmt.Sprintf("result=%s success=%t ready=%t duration=%v %s",
		res.ResultType, res.Success, res.Ready, res.Duration.Truncate(time.Millisecond), res.Message)
	if err := logging.AppendRun(cfg.LogDir, line); err != nil {
		logger.Warnf("Failed to append run log: %v", err)
	}
	if _, err := logging.Rotate(cfg.LogDir, cfg.LogRetentionDays); err != nil {
		logger.Warnf("Log rotation failed: %v", err)
	}

	statusDir := cfg.StatusDir
	if statusDir == "" {
		statusDir = status.DefaultDir()
	}
	if err := status.Save(statusDir, status.SyncStatus{
		Timestamp:  start,
		Success:    res.Success,
		ResultType: res.ResultType,
		Message:    res.Message,
		CommitHash: res.CommitHash,
	}); err != nil {
		logger.Warnf("Failed to save sync status: %v", err)
	}

	if store != nil {
		if _, err := store.InsertRun(ctx, storage.Run{
			StartedAt:     start,
			Duration:      res.Duration,
			Success:       res.Success,
			ResultType:    res.ResultType,
			Message:       res.Message,
			CommitHash:    res.CommitHash,
			Ready:         res.Ready,
			RsyncExitCode: res.RsyncExitCode,
		}); err != nil {
			logger.Warnf("Failed to record run history: %v", err)
		}
	}

	logger.Infof("Sync run finished: %s (%v)", res.ResultType, res.Duration.Truncate(time.Millisecond))
}
