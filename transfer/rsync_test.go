package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildCommandBasics(t *testing.T) {
	cmd := BuildCommand("/vault", "/backup", nil)

	if cmd[0] != "rsync" {
		t.Fatalf("expected rsync binary first, got %v", cmd)
	}
	if !contains(cmd, "-av") || !contains(cmd, "--progress") {
		t.Fatalf("missing archive/progress flags: %v", cmd)
	}
	if cmd[len(cmd)-2] != "/vault/" {
		t.Fatalf("source must carry a trailing slash, got %q", cmd[len(cmd)-2])
	}
	if cmd[len(cmd)-1] != "/backup" {
		t.Fatalf("destination must be last, got %q", cmd[len(cmd)-1])
	}
}

func TestBuildCommandExcludes(t *testing.T) {
	cmd := BuildCommand("/vault", "/backup", []string{".git", ".DS_Store", ""})

	var excludes []string
	for i, arg := range cmd {
		if arg == "--exclude" && i+1 < len(cmd) {
			excludes = append(excludes, cmd[i+1])
		}
	}
	if len(excludes) != 2 || excludes[0] != ".git" || excludes[1] != ".DS_Store" {
		t.Fatalf("unexpected excludes %v in %v", excludes, cmd)
	}
}

func TestAcceptableCodes(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{ExitSuccess, true},
		{ExitPartial, true},
		{ExitVanished, true},
		{1, false},
		{12, false},
		{255, false},
	}
	for _, tt := range tests {
		if got := Acceptable(tt.code); got != tt.want {
			t.Errorf("Acceptable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestAvailableReturnsBool(t *testing.T) {
	// rsync may or may not exist on the test host; only the probe itself is
	// under test.
	_ = Available()
	_ = SupportsIconv()
}

func TestRunCopiesTree(t *testing.T) {
	if !Available() {
		t.Skip("rsync not installed")
	}
	source := t.TempDir()
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(source, "note.md"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	res, err := Run(context.Background(), source, dest, []string{".git"})
	if err != nil {
		t.Fatalf("Run: %v (output: %s)", err, res.Output)
	}
	if res.ExitCode != ExitSuccess {
		t.Fatalf("expected clean exit, got %d", res.ExitCode)
	}
	if _, err := os.Stat(filepath.Join(dest, "note.md")); err != nil {
		t.Fatalf("file not copied: %v", err)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
