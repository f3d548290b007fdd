package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dcmcanon/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					humanize.Time(run.StartedAt),
					run.Root,
					displayLabel(string(run.Status)),
					humanize.Comma(int64(run.Total)),
					humanize.Comma(int64(run.Succeeded)),
					humanize.Comma(int64(run.Failed)),
					formatDuration(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Root", "Status", "Files", "Converted", "Failed", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func newFailuresCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failures <run-id>",
		Short: "List the files a run left unconverted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			run, entries, err := lookupFailures(cmd, store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Run %s has no failed files\n", shortID(run.ID))
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				tool := entry.Tool
				if tool == "" {
					tool = "-"
				}
				rows = append(rows, []string{entry.Path, tool, displayLabel(entry.Reason), firstLine(entry.Error)})
			}
			fmt.Fprintln(out, renderTable([]string{"Path", "Last Tool", "Reason", "Error"}, rows, nil))
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "retry <run-id>",
		Short: "Convert again the files a previous run left unconverted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			run, entries, err := lookupFailures(cmd, store, args[0])
			store.Close()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s has no failed files\n", shortID(run.ID))
				return nil
			}
			targets := make([]string, 0, len(entries))
			for _, entry := range entries {
				targets = append(targets, entry.Path)
			}
			return executeRun(cmd, ctx, runPlan{
				root:    run.Root,
				targets: targets,
				retryOf: run.ID,
				options: opts,
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func lookupFailures(cmd *cobra.Command, store *journal.Store, id string) (journal.Run, []journal.Entry, error) {
	run, err := store.FindRun(cmd.Context(), strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, journal.ErrRunNotFound) || errors.Is(err, journal.ErrAmbiguousRun) {
			return journal.Run{}, nil, fmt.Errorf("%w: %s (see `dcmcanon history`)", err, id)
		}
		return journal.Run{}, nil, err
	}
	entries, err := store.Failures(cmd.Context(), run.ID)
	if err != nil {
		return journal.Run{}, nil, err
	}
	return run, entries, nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func firstLine(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return value[:idx] + " …"
	}
	return value
}
