// Package transfer drives the rsync invocation that copies the vault once the
// readiness engine has cleared it.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mordilloSan/go_logger/logger"
)

// rsync exit codes we treat specially. 23 and 24 are expected on trees a sync
// daemon is touching: partial transfer and files vanishing mid-copy are
// warnings, not failures.
const (
	ExitSuccess  = 0
	ExitPartial  = 23
	ExitVanished = 24
)

// Result captures one rsync run.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Acceptable reports whether code leaves the destination usable.
func Acceptable(code int) bool {
	switch code {
	case ExitSuccess, ExitPartial, ExitVanished:
		return true
	default:
		return false
	}
}

// Available reports whether rsync is on the path.
func Available() bool {
	_, err := exec.LookPath("rsync")
	return err == nil
}

// SupportsIconv probes whether this rsync build can convert file-name
// encodings; macOS normalizes names to a decomposed form that needs it.
func SupportsIconv() bool {
	out, err := exec.Command("rsync", "--version").CombinedOutput()
	if err != nil {
		return false
	}
	return bytes.Contains(out, []byte("iconv"))
}

// BuildCommand assembles the rsync argument list. The trailing slash on the
// source copies its contents rather than the directory itself.
func BuildCommand(source, dest string, excludes []string) []string {
	args := []string{"rsync", "-av", "--progress"}
	for _, pattern := range excludes {
		if pattern != "" {
			args = append(args, "--exclude", pattern)
		}
	}
	if SupportsIconv() {
		args = append(args, "--iconv=utf-8-mac,utf-8")
	}
	args = append(args, strings.TrimSuffix(source, "/")+"/", dest)
	return args
}

// Run executes rsync and returns its result. A non-acceptable exit code is
// returned as an error; acceptable non-zero codes are logged as warnings.
func Run(ctx context.Context, source, dest string, excludes []string) (Result, error) {
	args := BuildCommand(source, dest, excludes)
	logger.Infof("Transferring %s -> %s", source, dest)
	logger.Debugf("rsync command: %v", args)

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()

	res := Result{
		ExitCode: 0,
		Output:   string(out),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			return res, fmt.Errorf("run rsync: %w", err)
		}
	}

	switch res.ExitCode {
	case ExitSuccess:
		logger.Infof("Transfer complete in %v", res.Duration.Truncate(time.Millisecond))
	case ExitPartial:
		logger.Warnf("Transfer finished with partial errors (exit %d); some files were skipped", res.ExitCode)
	case ExitVanished:
		logger.Warnf("Transfer finished but source files vanished mid-copy (exit %d)", res.ExitCode)
	default:
		return res, fmt.Errorf("rsync failed with exit code %d", res.ExitCode)
	}
	return res, nil
}
