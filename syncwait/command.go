package syncwait

import (
	"context"
	"io"
	"os/exec"
	"time"
)

// CommandRunner is the narrow surface the materializer needs from the host:
// run an external command under a timeout and check tool availability. Only
// exit/timeout status matters; output is never parsed. Tests substitute a
// deterministic implementation.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) error
	LookPath(name string) bool
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

func (ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Strategy is the materialization tier in use for this process.
type Strategy int

const (
	// StrategyNone: no usable tool; dataless files are left to the daemon.
	StrategyNone Strategy = iota
	// StrategyFallbackRead: force a download by reading the file's bytes.
	StrategyFallbackRead
	// StrategyNativeTool: ask the platform sync tool to download the file.
	StrategyNativeTool
)

func (s Strategy) String() string {
	switch s {
	case StrategyNativeTool:
		return "native"
	case StrategyFallbackRead:
		return "fallback-read"
	default:
		return "none"
	}
}

const (
	nativeTool   = "brctl"
	fallbackTool = "cat"
)

// Capabilities is the probed host environment. It is constructed once at
// process startup and passed in wherever needed, never read from globals.
type Capabilities struct {
	Strategy Strategy
	Runner   CommandRunner
}

// DetectCapabilities probes the system path once and picks the strategy tier:
// the native materialization tool when present, byte-read forcing otherwise,
// none when neither exists.
func DetectCapabilities(runner CommandRunner) Capabilities {
	caps := Capabilities{Strategy: StrategyNone, Runner: runner}
	switch {
	case runner.LookPath(nativeTool):
		caps.Strategy = StrategyNativeTool
	case runner.LookPath(fallbackTool):
		caps.Strategy = StrategyFallbackRead
	}
	return caps
}

// trigger issues one fire-and-forget materialization request for path.
func (c Capabilities) trigger(ctx context.Context, timeout time.Duration, path string) error {
	switch c.Strategy {
	case StrategyNativeTool:
		return c.Runner.Run(ctx, timeout, nativeTool, "download", path)
	case StrategyFallbackRead:
		return c.Runner.Run(ctx, timeout, fallbackTool, path)
	default:
		return nil
	}
}
