package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dcmcanon/internal/config"
	"dcmcanon/internal/convert"
	"dcmcanon/internal/deps"
	"dcmcanon/internal/faults"
	"dcmcanon/internal/journal"
	"dcmcanon/internal/logging"
	"dcmcanon/internal/logs"
	"dcmcanon/internal/pipeline"
	"dcmcanon/internal/preflight"
	"dcmcanon/internal/progress"
	"dcmcanon/internal/runlock"
	"dcmcanon/internal/toolchain"
	"dcmcanon/internal/walker"
)

const installHint = "Install DCMTK (https://dicom.offis.de/dcmtk), e.g. `apt install dcmtk` or `brew install dcmtk`, or point [[toolchain]] commands at your converters."

type runOptions struct {
	workers     int
	noProgress  bool
	dryRun      bool
	failOnError bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.workers, "workers", "j", 0, "Concurrent conversions (overrides workers.pool_size)")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "Disable the interactive progress bar")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "List the files that would be converted and exit")
	cmd.Flags().BoolVar(&o.failOnError, "fail-on-error", false, "Exit with status 2 when any file fails to convert")
}

// runPlan describes one pipeline invocation. When targets is nil the root is
// enumerated.
type runPlan struct {
	root    string
	targets []string
	retryOf string
	options runOptions
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <root>",
		Short: "Convert every record under a directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, runPlan{root: args[0], options: opts})
		},
	}
	opts.bind(cmd)
	return cmd
}

func executeRun(cmd *cobra.Command, cctx *commandContext, plan runPlan) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	root, err := config.ExpandPath(strings.TrimSpace(plan.root))
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	chain, err := toolchain.FromConfig(cfg.Toolchain)
	if err != nil {
		return err
	}
	if missing := deps.Missing(preflight.CheckTools(chain)); len(missing) > 0 {
		fmt.Fprintf(errOut, "required tool(s) not found on PATH: %s\n", strings.Join(deps.Commands(missing), ", "))
		fmt.Fprintln(errOut, installHint)
		return faults.Wrap(faults.ErrConfiguration, "cli", "check tools",
			fmt.Sprintf("%d converter(s) unavailable", len(missing)), nil)
	}
	fmt.Fprintf(out, "Working in: %s\n", root)
	if failed := preflight.Failed(preflight.RunAll(cfg, root)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, result := range failed {
			details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return faults.Wrap(faults.ErrConfiguration, "cli", "preflight", strings.Join(details, "; "), nil)
	}

	lock, err := runlock.Acquire(cfg.LockDir(), root)
	if err != nil {
		return err
	}
	defer lock.Release()

	runID := uuid.NewString()
	showBar := !plan.options.noProgress && !plan.options.dryRun && progress.IsTerminal(errOut)
	logger, logPath, err := newRunLogger(cfg, runID, errOut, showBar)
	if err != nil {
		return err
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	var store *journal.Store
	if cfg.Journal.Enabled && !plan.options.dryRun {
		store, err = journal.Open(cfg)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		if n, err := store.MarkInterrupted(ctx, root); err != nil {
			logger.Warn("mark interrupted runs failed", logging.Error(err))
		} else if n > 0 {
			logger.Info("previous runs marked interrupted", logging.Int64("runs", n))
		}
	}

	if cfg.Conversion.SweepStale && !plan.options.dryRun {
		sweep := walker.SweepStale(ctx, root, 0, logger)
		if len(sweep.Removed) > 0 {
			fmt.Fprintf(out, "Removed %d stale temporary file(s)\n", len(sweep.Removed))
		}
	}

	targets := plan.targets
	if targets == nil {
		listing, err := walker.Enumerate(ctx, root, walker.Options{
			Extensions:     cfg.Conversion.Extensions,
			IncludeHidden:  cfg.Conversion.IncludeHidden,
			FollowSymlinks: cfg.Conversion.FollowSymlinks,
		})
		if err != nil {
			return faults.Wrap(faults.ErrFilesystem, "cli", "enumerate", root, err)
		}
		for _, walkErr := range listing.Errors {
			logging.WarnWithContext(logger, "directory skipped", "enumerate_skipped",
				logging.String(logging.FieldPath, walkErr.Path),
				logging.Error(walkErr.Error),
				logging.String(logging.FieldErrorHint, "check permissions on the directory"),
				logging.String(logging.FieldImpact, "records below it are not converted"),
			)
		}
		targets = listing.Files
	}

	if plan.options.dryRun {
		for _, target := range targets {
			fmt.Fprintln(out, target)
		}
		fmt.Fprintf(out, "%d file(s) would be converted with %s\n", len(targets), strings.Join(chain.Names(), " → "))
		return nil
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "No files to convert")
		return nil
	}

	workers := cfg.PoolSize()
	if plan.options.workers > 0 {
		workers = plan.options.workers
	}

	var recorder pipeline.Recorder
	if store != nil {
		if err := store.BeginRun(ctx, journal.Run{
			ID:        runID,
			Root:      root,
			Workers:   workers,
			Toolchain: chain.Names(),
			RetryOf:   plan.retryOf,
		}); err != nil {
			return err
		}
		recorder = store.Recorder(runID)
	}

	reporters := progress.Multi{progress.NewLog(logger)}
	if showBar {
		reporters = append(reporters, progress.NewBar(errOut))
	}

	converter := convert.New(chain, convert.Options{
		RequireOutput: cfg.Conversion.RequireOutput,
		Logger:        logger,
	})
	report, runErr := pipeline.Run(ctx, targets, pipeline.Options{
		Converter:   converter,
		Workers:     workers,
		EventBuffer: cfg.Workers.EventBuffer,
		RunID:       runID,
		Root:        root,
		Recorder:    recorder,
		Reporter:    reporters,
		Logger:      logger,
	})

	// The journal and summary are written even when the run was interrupted.
	finishCtx := context.WithoutCancel(ctx)
	if store != nil {
		status := journal.RunCompleted
		if report.Canceled {
			status = journal.RunCanceled
		}
		if err := store.FinishRun(finishCtx, runID, journal.Totals{
			Status:    status,
			Total:     report.Total,
			Succeeded: report.Succeeded,
			Failed:    report.Failed,
			Dropped:   report.DroppedEvents,
		}); err != nil {
			logger.Warn("finish run in journal failed", logging.Error(err))
		}
	}

	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSummary(report, colorize))
	if len(report.Failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderFailures(report.Failures))
		if store != nil {
			fmt.Fprintf(out, "Retry with: dcmcanon retry %s\n", shortID(runID))
		}
	}

	pruneHistory(finishCtx, cfg, store, logger, logPath)

	if runErr != nil {
		return runErr
	}
	if plan.options.failOnError && report.Failed > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d of %d file(s) failed to convert", report.Failed, report.Total)}
	}
	return nil
}

// pruneHistory applies logging.retention_days to run logs and the journal.
func pruneHistory(ctx context.Context, cfg *config.Config, store *journal.Store, logger *slog.Logger, logPath string) {
	days := cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	logging.CleanupOldLogs(logger, days, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logs.Pattern,
		Exclude: []string{logPath},
	})
	if store == nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	if n, err := store.Prune(ctx, cutoff); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("prune journal failed", logging.Error(err))
	} else if n > 0 {
		logger.Debug("pruned journal runs", logging.Int64("runs", n))
	}
}
