// Package gitops wraps the git operations of the backup pipeline: stage,
// commit, and push the destination repository after each transfer.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mordilloSan/go_logger/logger"
)

const commandTimeout = 60 * time.Second

// Available reports whether git is on the path.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	out, err := run(context.Background(), dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// InitRepo initializes dir as a repository with main as the default branch.
func InitRepo(dir string) error {
	if _, err := run(context.Background(), dir, "init", "-b", "main"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	logger.Infof("Initialized git repository in %s", dir)
	return nil
}

// HasChanges reports whether the work tree has anything to commit.
func HasChanges(dir string) (bool, error) {
	out, err := run(context.Background(), dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// HasCommits reports whether the repository has at least one commit.
func HasCommits(dir string) bool {
	_, err := run(context.Background(), dir, "rev-parse", "--verify", "HEAD")
	return err == nil
}

// AddAll stages every change in the work tree.
func AddAll(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

// Commit records the staged changes and returns the new commit hash.
func Commit(ctx context.Context, dir, message string) (string, error) {
	if _, err := run(ctx, dir, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	hash, err := run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// Push publishes branch to remote.
func Push(ctx context.Context, dir, remote, branch string) error {
	if _, err := run(ctx, dir, "push", remote, branch); err != nil {
		return fmt.Errorf("git push %s %s: %w", remote, branch, err)
	}
	logger.Infof("Pushed %s to %s", branch, remote)
	return nil
}

// CurrentBranch returns the checked-out branch name.
func CurrentBranch(dir string) (string, error) {
	out, err := run(context.Background(), dir, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RemoteURL returns the fetch URL of remote, or empty when unset.
func RemoteURL(dir, remote string) string {
	out, err := run(context.Background(), dir, "remote", "get-url", remote)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// SetRemoteURL adds or updates remote to point at url.
func SetRemoteURL(dir, remote, url string) error {
	if RemoteURL(dir, remote) == "" {
		if _, err := run(context.Background(), dir, "remote", "add", remote, url); err != nil {
			return fmt.Errorf("git remote add: %w", err)
		}
		return nil
	}
	if _, err := run(context.Background(), dir, "remote", "set-url", remote, url); err != nil {
		return fmt.Errorf("git remote set-url: %w", err)
	}
	return nil
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
