package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dcmcanon/internal/deps"
	"dcmcanon/internal/faults"
	"dcmcanon/internal/preflight"
	"dcmcanon/internal/toolchain"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [root]",
		Short: "Report converter availability and directory access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			chain, err := toolchain.FromConfig(cfg.Toolchain)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckTools(chain)
			for _, line := range renderSectionHeader("Converters", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable([]string{"Tier", "Command", "Status", "Location"}, toolRows(chain, statuses), nil))

			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			results := preflight.RunAll(cfg, root)
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Directories", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) == 0 && len(failed) == 0 {
				fmt.Fprintln(out, renderStatusLine("Summary", statusOK, "Ready to convert", colorize))
				return nil
			}
			if len(missing) > 0 {
				fmt.Fprintln(out, renderStatusLine("Summary", statusError,
					"Missing converters: "+strings.Join(deps.Commands(missing), ", "), colorize))
				fmt.Fprintln(out, installHint)
			}
			return faults.Wrap(faults.ErrConfiguration, "cli", "check",
				fmt.Sprintf("%d converter(s) missing, %d directory check(s) failed", len(missing), len(failed)), nil)
		},
	}
}

// toolRows renders one row per tier; tiers sharing a command share a status.
func toolRows(chain toolchain.Chain, statuses []deps.Status) [][]string {
	byCommand := make(map[string]deps.Status, len(statuses))
	for _, status := range statuses {
		byCommand[status.Command] = status
	}
	rows := make([][]string, 0, len(chain))
	for i, spec := range chain {
		status := byCommand[spec.Command]
		state, location := "Missing", status.Detail
		if status.Available {
			state, location = "Ready", status.Path
		}
		rows = append(rows, []string{fmt.Sprintf("%d. %s", i+1, spec.Name), spec.Command, state, location})
	}
	return rows
}
