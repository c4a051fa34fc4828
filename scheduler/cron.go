// Package scheduler registers the backup command with the user's crontab so
// the OS drives periodic runs.
package scheduler

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

const crontabTimeout = 10 * time.Second

// Presets maps friendly schedule names to cron expressions.
var Presets = map[string]string{
	"15min":         "*/15 * * * *",
	"30min":         "*/30 * * * *",
	"hourly":        "0 * * * *",
	"daily":         "0 2 * * *",
	"daily_morning": "0 9 * * *",
	"daily_evening": "0 22 * * *",
}

// Job is one crontab entry. Comment doubles as the idempotency tag: install
// and remove match on it.
type Job struct {
	Schedule string
	Command  string
	Comment  string
}

// Line renders the crontab entry.
func (j Job) Line() string {
	if j.Comment != "" {
		return fmt.Sprintf("%s %s # %s", j.Schedule, j.Command, j.Comment)
	}
	return fmt.Sprintf("%s %s", j.Schedule, j.Command)
}

// ParseLine parses one crontab line; nil for blanks and pure comments.
func ParseLine(line string) *Job {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	var comment string
	if idx := strings.LastIndex(line, "#"); idx >= 0 {
		comment = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	fields := strings.Fields(line)
	if len(fields) < 6 {
		return nil
	}
	return &Job{
		Schedule: strings.Join(fields[:5], " "),
		Command:  strings.Join(fields[5:], " "),
		Comment:  comment,
	}
}

// Resolve turns a preset name or raw cron expression into a schedule.
func Resolve(scheduleOrPreset string) (string, error) {
	if s, ok := Presets[scheduleOrPreset]; ok {
		return s, nil
	}
	if len(strings.Fields(scheduleOrPreset)) == 5 {
		return scheduleOrPreset, nil
	}
	return "", fmt.Errorf("scheduler: %q is neither a preset nor a 5-field cron expression", scheduleOrPreset)
}

// Install adds job to the crontab, replacing any entry carrying the same
// comment tag.
func Install(ctx context.Context, job Job) error {
	current, err := readCrontab(ctx)
	if err != nil {
		return err
	}
	merged := MergeCrontab(current, job)
	if err := writeCrontab(ctx, merged); err != nil {
		return err
	}
	logger.Infof("Installed cron job: %s", job.Line())
	return nil
}

// Remove deletes every entry carrying the comment tag.
func Remove(ctx context.Context, comment string) error {
	current, err := readCrontab(ctx)
	if err != nil {
		return err
	}
	var kept []string
	removed := 0
	for _, line := range strings.Split(current, "\n") {
		if j := ParseLine(line); j != nil && j.Comment == comment {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		logger.Infof("No cron job tagged %q found", comment)
		return nil
	}
	if err := writeCrontab(ctx, strings.TrimRight(strings.Join(kept, "\n"), "\n")+"\n"); err != nil {
		return err
	}
	logger.Infof("Removed %d cron job(s) tagged %q", removed, comment)
	return nil
}

// List returns the parsed jobs of the current crontab.
func List(ctx context.Context) ([]Job, error) {
	current, err := readCrontab(ctx)
	if err != nil {
		return nil, err
	}
	var jobs []Job
	for _, line := range strings.Split(current, "\n") {
		if j := ParseLine(line); j != nil {
			jobs = append(jobs, *j)
		}
	}
	return jobs, nil
}

// MergeCrontab returns the crontab content with job appended, dropping any
// prior entry that carries the same comment tag.
func MergeCrontab(current string, job Job) string {
	var kept []string
	for _, line := range strings.Split(current, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if j := ParseLine(line); j != nil && job.Comment != "" && j.Comment == job.Comment {
			continue
		}
		kept = append(kept, line)
	}
	kept = append(kept, job.Line())
	return strings.Join(kept, "\n") + "\n"
}

func readCrontab(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, crontabTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "crontab", "-l").Output()
	if err != nil {
		// "no crontab for user" exits nonzero; treat it as empty.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", fmt.Errorf("read crontab: %w", err)
	}
	return string(out), nil
}

func writeCrontab(ctx context.Context, content string) error {
	ctx, cancel := context.WithTimeout(ctx, crontabTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "crontab", "-")
	cmd.Stdin = bytes.NewBufferString(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("write crontab: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
