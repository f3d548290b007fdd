package pipeline

import (
	"slices"
	"strings"
	"time"

	"dcmcanon/internal/convert"
)

// Failure describes a record that was left untouched.
type Failure struct {
	Path string
	// LastTool is the last tier attempted; empty when none ran.
	LastTool string
	Reason   string
	Error    string
}

// Report is the final account of a run.
type Report struct {
	RunID     string
	Root      string
	Workers   int
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
	// ByTool counts successful records per tier.
	ByTool        map[string]int
	Elapsed       time.Duration
	DroppedEvents int
	RecordErrors  int
	Canceled      bool
}

// Balanced reports whether every target is accounted for.
func (r Report) Balanced() bool {
	return r.Succeeded+r.Failed == r.Total
}

// FailedPaths lists failed records in path order.
func (r Report) FailedPaths() []string {
	paths := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		paths = append(paths, failure.Path)
	}
	return paths
}

type tally struct {
	report Report
}

func newTally(runID, root string, workers, total int) *tally {
	return &tally{report: Report{
		RunID:   runID,
		Root:    root,
		Workers: workers,
		Total:   total,
		ByTool:  make(map[string]int),
	}}
}

func (t *tally) add(outcome convert.Outcome) {
	if outcome.Success {
		t.report.Succeeded++
		t.report.ByTool[outcome.Tool]++
		return
	}
	t.report.Failed++
	failure := Failure{Path: outcome.Path, LastTool: outcome.Tool, Reason: outcome.Reason}
	if outcome.Err != nil {
		failure.Error = outcome.Err.Error()
	}
	t.report.Failures = append(t.report.Failures, failure)
}

func (t *tally) done() int {
	return t.report.Succeeded + t.report.Failed
}

func (t *tally) finish(elapsed time.Duration) Report {
	slices.SortFunc(t.report.Failures, func(a, b Failure) int {
		return strings.Compare(a.Path, b.Path)
	})
	t.report.Elapsed = elapsed
	return t.report
}
