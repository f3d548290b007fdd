package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dcmcanon/internal/config"
	"dcmcanon/internal/logging"
	"dcmcanon/internal/runlock"
	"dcmcanon/internal/walker"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean <root>",
		Short: "Remove temporary files left behind by interrupted runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}

			lock, err := runlock.Acquire(cfg.LockDir(), root)
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			result := walker.SweepStale(cmd.Context(), root, olderThan, logger)
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d stale temporary file(s)\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d path(s) could not be cleaned; first: %s: %w",
					len(result.Errors), result.Errors[0].Path, result.Errors[0].Error)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove files not modified within this duration")
	return cmd
}
