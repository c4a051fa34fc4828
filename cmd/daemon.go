package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mordilloSan/go_logger/logger"

	"github.com/StrongTechProject/timemachine/config"
	"github.com/StrongTechProject/timemachine/storage"
	"github.com/StrongTechProject/timemachine/syncwait"
)

// DaemonConfig controls the long-running mode.
type DaemonConfig struct {
	Config   *config.Config
	Caps     syncwait.Capabilities
	DBPath   string
	Interval time.Duration
	Watch    bool
	// Debounce batches bursts of filesystem events into one run.
	Debounce time.Duration
}

type daemon struct {
	cfg     DaemonConfig
	store   *storage.Store
	running atomic.Bool
}

// NewDaemon validates the configuration and opens the run-history store.
func NewDaemon(cfg DaemonConfig) (*daemon, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 && !cfg.Watch {
		return nil, fmt.Errorf("daemon: an interval or watch mode is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 30 * time.Second
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	logger.Infof("Run history opened: %s", cfg.DBPath)

	return &daemon{cfg: cfg, store: store}, nil
}

func (d *daemon) Close() {
	logger.Infof("Shutting down daemon...")
	if err := d.store.Close(); err != nil {
		logger.Warnf("Run history close error: %v", err)
	}
	logger.Infof("Daemon shutdown complete")
}

// Run blocks until ctx is cancelled, triggering sync runs on the interval
// ticker and, when enabled, on debounced filesystem activity.
func (d *daemon) Run(ctx context.Context) error {
	trigger := make(chan string, 1)

	if d.cfg.Interval > 0 {
		go d.startTicker(ctx, trigger)
		logger.Infof("Interval trigger active: every %v", d.cfg.Interval)
	}
	if d.cfg.Watch {
		watcher, err := d.startWatcher(ctx, trigger)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()
		logger.Infof("Watch trigger active on %s (debounce %v)", d.cfg.Config.SourceDir, d.cfg.Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-trigger:
			if err := d.runOnce(ctx, reason); err != nil {
				logger.Errorf("Sync run failed: %v", err)
			}
		}
	}
}

func (d *daemon) startTicker(ctx context.Context, trigger chan<- string) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			requestRun(trigger, "interval")
		case <-ctx.Done():
			return
		}
	}
}

// startWatcher watches the source root and forwards debounced change bursts
// to the trigger channel. Event-driven wakeup lives here, outside the
// readiness engine; the engine itself still polls.
func (d *daemon) startWatcher(ctx context.Context, trigger chan<- string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.cfg.Config.SourceDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", d.cfg.Config.SourceDir, err)
	}

	go func() {
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debugf("Filesystem event: %s", event)
				if debounce == nil {
					debounce = time.AfterFunc(d.cfg.Debounce, func() {
						requestRun(trigger, "filesystem change")
					})
				} else {
					debounce.Reset(d.cfg.Debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("Watcher error: %v", err)
			}
		}
	}()
	return watcher, nil
}

// requestRun coalesces triggers: a pending request already covers this one.
func requestRun(trigger chan<- string, reason string) {
	select {
	case trigger <- reason:
	default:
	}
}

func (d *daemon) runOnce(ctx context.Context, reason string) error {
	if !d.running.CompareAndSwap(false, true) {
		logger.Infof("Sync already running; skipping %s trigger", reason)
		return nil
	}
	defer d.running.Store(false)

	logger.Infof("Starting sync run (trigger: %s)", reason)
	res, err := RunSync(ctx, d.cfg.Config, d.cfg.Caps, d.store)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("sync run ended %s: %s", res.ResultType, res.Message)
	}
	return nil
}
