package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mordilloSan/go_logger/logger"

	"github.com/StrongTechProject/timemachine/cmd"
	"github.com/StrongTechProject/timemachine/config"
	"github.com/StrongTechProject/timemachine/internal/version"
	"github.com/StrongTechProject/timemachine/scheduler"
	"github.com/StrongTechProject/timemachine/status"
	"github.com/StrongTechProject/timemachine/storage"
	"github.com/StrongTechProject/timemachine/syncwait"
)

const cronTag = "timemachine"

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		sourceDir    = flag.String("source", "", "Source directory (overrides config)")
		destDir      = flag.String("dest", "", "Destination directory (overrides config)")
		dbPath       = flag.String("db-path", "", "Run-history database path (overrides TIMEMACHINE_DB_PATH)")
		once         = flag.Bool("once", false, "Run a single sync and exit")
		intervalFlag = flag.String("interval", "", "Daemon mode: sync interval (Go duration like 1h, 30m)")
		watch        = flag.Bool("watch", false, "Daemon mode: trigger syncs on source tree changes")
		installCron  = flag.String("install-cron", "", "Install a crontab entry (preset like hourly/daily or a cron expression) and exit")
		removeCron   = flag.Bool("remove-cron", false, "Remove the timemachine crontab entry and exit")
		showStatus   = flag.Bool("status", false, "Print the last sync status and exit")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger.Init("production", *verbose)

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *showStatus {
		printStatus()
		return
	}

	cfg, err := loadConfig(*configPath, *sourceDir, *destDir)
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}

	if *installCron != "" {
		installCronJob(*installCron, *configPath)
		return
	}
	if *removeCron {
		if err := scheduler.Remove(context.Background(), cronTag); err != nil {
			logger.Fatalf("Failed to remove cron job: %v", err)
		}
		return
	}

	dbVal := coalesce(*dbPath, os.Getenv("TIMEMACHINE_DB_PATH"), defaultDBPath())
	caps := syncwait.DetectCapabilities(syncwait.ExecRunner{})
	logger.Infof("Materialization strategy: %s", caps.Strategy)

	interval, err := parseInterval(*intervalFlag)
	if err != nil {
		logger.Warnf("Invalid interval %q, defaulting to 0 (disabled): %v", *intervalFlag, err)
		interval = 0
	}

	if *once || (interval == 0 && !*watch) {
		runOnce(cfg, caps, dbVal)
		return
	}

	runDaemon(cfg, caps, dbVal, interval, *watch)
}

func runOnce(cfg *config.Config, caps syncwait.Capabilities, dbPath string) {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		logger.Warnf("Run history unavailable: %v", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	res, err := cmd.RunSync(context.Background(), cfg, caps, store)
	if err != nil {
		logger.Fatalf("Sync failed: %v", err)
	}
	if !res.Success {
		logger.Errorf("Sync ended %s: %s", res.ResultType, res.Message)
		os.Exit(1)
	}
}

func runDaemon(cfg *config.Config, caps syncwait.Capabilities, dbPath string, interval time.Duration, watch bool) {
	d, err := cmd.NewDaemon(cmd.DaemonConfig{
		Config:   cfg,
		Caps:     caps,
		DBPath:   dbPath,
		Interval: interval,
		Watch:    watch,
	})
	if err != nil {
		logger.Fatalf("Failed to start daemon: %v", err)
	}
	defer d.Close()

	logger.Infof("Daemon initialized source=%s dest=%s db=%s interval=%v watch=%t",
		cfg.SourceDir, cfg.DestDir, dbPath, interval, watch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("Daemon exited with error: %v", err)
		}
	}

	logger.Infof("Shutdown complete")
}

func loadConfig(path, sourceOverride, destOverride string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if sourceOverride != "" {
		cfg.SourceDir = sourceOverride
	}
	if destOverride != "" {
		cfg.DestDir = destOverride
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func installCronJob(scheduleOrPreset, configPath string) {
	schedule, err := scheduler.Resolve(scheduleOrPreset)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	command := os.Args[0] + " -once"
	if configPath != "" {
		command += " -config " + configPath
	}
	job := scheduler.Job{Schedule: schedule, Command: command, Comment: cronTag}
	if err := scheduler.Install(context.Background(), job); err != nil {
		logger.Fatalf("Failed to install cron job: %v", err)
	}
}

func printStatus() {
	s, err := status.Load(status.DefaultDir())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No sync has run yet")
			return
		}
		logger.Fatalf("Failed to load status: %v", err)
	}
	outcome := "failed"
	if s.Success {
		outcome = "ok"
	}
	fmt.Printf("%s (%s): %s [%s]\n", s.ResultType, outcome, s.Message, s.TimeAgo())
}

func defaultDBPath() string {
	return filepath.Join(status.DefaultDir(), "history.db")
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseInterval(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
