package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/churn/pkg/churn/config"
	"github.com/jamesainslie/churn/pkg/churn/journal"
	"github.com/jamesainslie/churn/pkg/churn/logging"
	"github.com/jamesainslie/churn/pkg/churn/safety"
	"github.com/jamesainslie/churn/pkg/churn/supervisor"
	"github.com/jamesainslie/churn/pkg/churn/types"
	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// runChurn is the root command: validate the tree, start the workers,
// and keep them running until interrupted.
func runChurn(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if len(args) == 1 {
		cfg.Root = args[0]
	}

	rootPath, err := config.ExpandPath(cfg.Root)
	if err != nil {
		return err
	}
	root, err := safety.ValidateRoot(rootPath, true)
	if err != nil {
		printError("%v", err)
		return err
	}

	// Best-effort confinement: needs privileges, and its absence is not
	// fatal. After a successful chroot the tree is the filesystem.
	isolated := false
	if cfg.Isolate {
		if err := isolate(root); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: isolation unavailable: %v\n", err)
		} else {
			isolated = true
			root = string(filepath.Separator)
			printVerbose("confined filesystem view to %s", rootPath)
		}
	}

	// File-backed sinks live outside the confined view, so they stay off
	// under isolation.
	if isolated {
		printInfo("isolation active: log file and run journal disabled")
	} else {
		logCfg, err := buildLoggingConfig(&cfg)
		if err != nil {
			return err
		}
		if err := logging.Init(logCfg); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer func() { _ = logging.Close() }()
	}

	opts, err := buildWorkerOptions(&cfg, root)
	if err != nil {
		printError("%v", err)
		return err
	}

	dashboard := viper.GetBool("dashboard")
	if getQuiet() || dashboard {
		opts.Progress = io.Discard
		opts.Diag = io.Discard
	}

	sup, err := supervisor.New(supervisor.Options{
		Workers: cfg.Workers,
		Worker:  opts,
		// Watching the parent of "/" makes no sense once chrooted.
		GuardRoot: !isolated,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runID := uuid.NewString()
	printInfo("churn %s: %d worker(s) against %s", version, cfg.Workers, rootPath)

	var runErr error
	if dashboard {
		runErr = runWithDashboard(ctx, sup, &cfg, rootPath, start)
	} else {
		runErr = sup.Run(ctx)
	}

	view := sup.Stats()
	printSummary(view, time.Since(start))

	if cfg.Journal.Enabled && !isolated {
		rec := &journal.Record{
			ID:      runID,
			Start:   start,
			End:     time.Now(),
			Root:    rootPath,
			Workers: cfg.Workers,
			Stats:   view,
		}
		if err := recordRun(&cfg, rec); err != nil {
			printError("recording run: %v", err)
		}
	}

	if runErr != nil {
		printError("%v", runErr)
	}
	return runErr
}

// buildLoggingConfig maps the file configuration onto the logging
// package, creating the state directory for the default log path.
func buildLoggingConfig(cfg *config.Config) (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if cfg.Logging.Rotation.MaxSize != "" {
		size, err := types.ParseSize(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid log rotation max_size: %w", err)
		}
		rotation.MaxSize = size
	}
	if cfg.Logging.Rotation.MaxAge > 0 {
		rotation.MaxAge = cfg.Logging.Rotation.MaxAge
	}
	if cfg.Logging.Rotation.MaxBackups > 0 {
		rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	}
	rotation.Daily = cfg.Logging.Rotation.Daily

	path := cfg.Logging.Path
	if path == "" {
		if err := config.EnsureStateDir(); err != nil {
			return logging.Config{}, err
		}
		path = config.DefaultLogPath()
	}

	out := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       path,
		Rotation:   rotation,
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		out.ConsoleLevel = "debug"
	}
	return out, nil
}

// recordRun appends the run record to the journal and prunes expired
// entries while the database is open anyway.
func recordRun(cfg *config.Config, rec *journal.Record) error {
	path := cfg.Journal.Path
	if path == "" {
		if err := config.EnsureDataDir(); err != nil {
			return err
		}
		path = config.DefaultJournalPath()
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if err := j.Put(rec); err != nil {
		return err
	}

	if _, err := j.Prune(cfg.Journal.RetentionDays); err != nil {
		return err
	}
	return nil
}

// printSummary reports what the run did, in action order.
func printSummary(view worker.StatsView, elapsed time.Duration) {
	if getQuiet() {
		return
	}

	fmt.Printf("\nRan %s: %s actions, %s recoveries\n",
		elapsed.Round(time.Second),
		humanize.Comma(view.Ticks),
		humanize.Comma(view.Recoveries))

	for a := types.ActionMkdir; a <= types.ActionRewrite; a++ {
		fmt.Printf("  %-8s %s\n", a.String(), humanize.Comma(view.Actions[a.String()]))
	}

	fmt.Printf("Wrote %s, freed %s\n",
		types.FormatSize(view.BytesWritten),
		types.FormatSize(view.BytesFreed))
}
