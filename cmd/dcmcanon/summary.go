package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"dcmcanon/internal/pipeline"
)

func renderSummary(report pipeline.Report, colorize bool) string {
	lines := renderSectionHeader("Summary", colorize)

	rows := [][]string{
		{"Files", humanize.Comma(int64(report.Total))},
		{"Converted", humanize.Comma(int64(report.Succeeded))},
	}
	tools := make([]string, 0, len(report.ByTool))
	for tool := range report.ByTool {
		tools = append(tools, tool)
	}
	slices.Sort(tools)
	for _, tool := range tools {
		rows = append(rows, []string{"  via " + tool, humanize.Comma(int64(report.ByTool[tool]))})
	}
	rows = append(rows,
		[]string{"Failed", humanize.Comma(int64(report.Failed))},
		[]string{"Workers", fmt.Sprintf("%d", report.Workers)},
		[]string{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
	)
	if report.DroppedEvents > 0 {
		rows = append(rows, []string{"Dropped progress events", humanize.Comma(int64(report.DroppedEvents))})
	}
	if report.RecordErrors > 0 {
		rows = append(rows, []string{"Journal write errors", humanize.Comma(int64(report.RecordErrors))})
	}
	lines = append(lines, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	switch {
	case report.Canceled:
		lines = append(lines, renderStatusLine("Result", statusError,
			fmt.Sprintf("Canceled; %d file(s) not converted", report.Failed), colorize))
	case report.Failed > 0:
		lines = append(lines, renderStatusLine("Result", statusWarn,
			fmt.Sprintf("%d file(s) left unconverted", report.Failed), colorize))
	default:
		lines = append(lines, renderStatusLine("Result", statusOK,
			fmt.Sprintf("All %s file(s) converted", humanize.Comma(int64(report.Total))), colorize))
	}
	return strings.Join(lines, "\n")
}

func renderFailures(failures []pipeline.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, failure := range failures {
		tool := failure.LastTool
		if tool == "" {
			tool = "-"
		}
		rows = append(rows, []string{failure.Path, tool, displayLabel(failure.Reason)})
	}
	return "Failed files:\n" + renderTable([]string{"Path", "Last Tool", "Reason"}, rows, nil)
}
