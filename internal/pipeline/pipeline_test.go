package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dcmcanon/internal/convert"
	"dcmcanon/internal/faults"
	"dcmcanon/internal/pipeline"
	"dcmcanon/internal/testsupport"
)

type fakeConverter struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	calls    map[string]int
	fn       func(ctx context.Context, path string) convert.Outcome
}

func (f *fakeConverter) Convert(ctx context.Context, path string) convert.Outcome {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[path]++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return f.fn(ctx, path)
	}
	return convert.Outcome{Path: path, Success: true, Tool: "fake"}
}

type recordingReporter struct {
	started  int
	total    int
	delay    time.Duration
	events   []pipeline.Event
	finished []pipeline.Report
}

func (r *recordingReporter) Start(_ string, total int) {
	r.started++
	r.total = total
}

func (r *recordingReporter) FileDone(ev pipeline.Event) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.events = append(r.events, ev)
}

func (r *recordingReporter) Finish(report pipeline.Report) {
	r.finished = append(r.finished, report)
}

type countingRecorder struct {
	paths []string
	err   error
}

func (c *countingRecorder) Record(_ context.Context, outcome convert.Outcome) error {
	c.paths = append(c.paths, outcome.Path)
	return c.err
}

func targets(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/data/%03d.dcm", i)
	}
	return out
}

func TestRunBoundsConcurrency(t *testing.T) {
	conv := &fakeConverter{delay: 10 * time.Millisecond}
	reporter := &recordingReporter{}

	report, err := pipeline.Run(context.Background(), targets(24), pipeline.Options{
		Converter:   conv,
		Workers:     3,
		EventBuffer: 64,
		RunID:       "run-1",
		Reporter:    reporter,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak := conv.maxSeen.Load(); peak > 3 {
		t.Fatalf("expected at most 3 conversions in flight, saw %d", peak)
	}
	if report.Total != 24 || report.Succeeded != 24 || report.Failed != 0 || !report.Balanced() {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Workers != 3 || report.ByTool["fake"] != 24 || report.RunID != "run-1" {
		t.Fatalf("unexpected report metadata %+v", report)
	}
	if reporter.started != 1 || reporter.total != 24 {
		t.Fatalf("unexpected start calls %d/%d", reporter.started, reporter.total)
	}
	if len(reporter.events) != 24 || len(reporter.finished) != 1 {
		t.Fatalf("expected 24 events and one finish, got %d/%d", len(reporter.events), len(reporter.finished))
	}
	for i, ev := range reporter.events {
		if ev.Done != i+1 || ev.Total != 24 {
			t.Fatalf("event %d out of order: %+v", i, ev)
		}
	}
}

func TestRunDeduplicatesTargets(t *testing.T) {
	conv := &fakeConverter{}
	input := []string{"/data/a", "/data/b", "/data/a", "/data/c", "/data/b"}

	report, err := pipeline.Run(context.Background(), input, pipeline.Options{Converter: conv, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 3 || report.Succeeded != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	for path, n := range conv.calls {
		if n != 1 {
			t.Fatalf("%s converted %d times", path, n)
		}
	}
}

func TestRunIsolatesPanics(t *testing.T) {
	conv := &fakeConverter{fn: func(_ context.Context, path string) convert.Outcome {
		if path == "/data/001.dcm" {
			panic("converter exploded")
		}
		return convert.Outcome{Path: path, Success: true, Tool: "fake"}
	}}

	report, err := pipeline.Run(context.Background(), targets(5), pipeline.Options{Converter: conv, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Succeeded != 4 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if f := report.Failures[0]; f.Path != "/data/001.dcm" || f.Reason != "internal" {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestRunFillsMissingFailureReason(t *testing.T) {
	conv := &fakeConverter{fn: func(_ context.Context, path string) convert.Outcome {
		return convert.Outcome{Success: false}
	}}
	report, err := pipeline.Run(context.Background(), []string{"/data/x"}, pipeline.Options{Converter: conv})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Path != "/data/x" || report.Failures[0].Reason == "" {
		t.Fatalf("unexpected failures %+v", report.Failures)
	}
}

func TestRunCancellationAccountsForEveryTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conv := &fakeConverter{fn: func(_ context.Context, path string) convert.Outcome {
		cancel()
		return convert.Outcome{Path: path, Success: true, Tool: "fake"}
	}}
	recorder := &countingRecorder{}

	report, err := pipeline.Run(ctx, targets(10), pipeline.Options{Converter: conv, Workers: 1, Recorder: recorder})
	if !errors.Is(err, faults.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if !report.Canceled || !report.Balanced() || report.Total != 10 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Succeeded != 1 || report.Failed != 9 {
		t.Fatalf("expected 1 success and 9 canceled, got %d/%d", report.Succeeded, report.Failed)
	}
	for _, failure := range report.Failures {
		if failure.Reason != "canceled" {
			t.Fatalf("unexpected failure reason %+v", failure)
		}
	}
	if len(recorder.paths) != 10 {
		t.Fatalf("expected every outcome recorded, got %d", len(recorder.paths))
	}
}

func TestRunDropsEventsForSlowReporterButRecordsAll(t *testing.T) {
	conv := &fakeConverter{}
	reporter := &recordingReporter{delay: 20 * time.Millisecond}
	recorder := &countingRecorder{err: errors.New("disk full")}

	report, err := pipeline.Run(context.Background(), targets(10), pipeline.Options{
		Converter:   conv,
		Workers:     4,
		EventBuffer: 1,
		Reporter:    reporter,
		Recorder:    recorder,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DroppedEvents == 0 {
		t.Fatal("expected events to be dropped for a slow reporter")
	}
	if len(reporter.events)+report.DroppedEvents != 10 {
		t.Fatalf("delivered %d + dropped %d != 10", len(reporter.events), report.DroppedEvents)
	}
	if len(recorder.paths) != 10 || report.RecordErrors != 10 {
		t.Fatalf("expected all outcomes offered to recorder, got %d (errors %d)", len(recorder.paths), report.RecordErrors)
	}
	if len(reporter.finished) != 1 || reporter.finished[0].Succeeded != 10 {
		t.Fatalf("expected finish with full report, got %+v", reporter.finished)
	}
}

func TestRunRequiresConverter(t *testing.T) {
	if _, err := pipeline.Run(context.Background(), targets(1), pipeline.Options{}); !faults.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunEmptyTargets(t *testing.T) {
	reporter := &recordingReporter{}
	report, err := pipeline.Run(context.Background(), nil, pipeline.Options{Converter: &fakeConverter{}, Reporter: reporter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 0 || !report.Balanced() || len(reporter.finished) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func newRealConverter(t *testing.T, tools ...testsupport.StubTool) *convert.Converter {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubTools(tools...))
	return testsupport.NewConverter(t, cfg)
}

func TestRunTieredScenario(t *testing.T) {
	conv := newRealConverter(t,
		testsupport.MatchTool("dcmdjpeg", "A.dcm"),
		testsupport.MatchTool("dcmconv", "B.dcm"),
	)
	root := t.TempDir()
	paths := testsupport.WriteRecords(t, root, map[string]string{
		"A.dcm": "jpeg-compressed",
		"B.dcm": "implicit-little",
		"C.dcm": "corrupt",
	})

	report, err := pipeline.Run(context.Background(), []string{paths["A.dcm"], paths["B.dcm"], paths["C.dcm"]}, pipeline.Options{
		Converter: conv,
		Workers:   2,
		Root:      root,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !reflect.DeepEqual(report.ByTool, map[string]int{"dcmdjpeg": 1, "dcmconv": 1}) {
		t.Fatalf("unexpected per-tool counts %v", report.ByTool)
	}
	if got := report.FailedPaths(); !reflect.DeepEqual(got, []string{paths["C.dcm"]}) {
		t.Fatalf("FailedPaths = %v", got)
	}
	failure := report.Failures[0]
	if failure.Path != paths["C.dcm"] || failure.LastTool != "dcmconv" || failure.Reason != "tools_rejected" {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if got := testsupport.ReadString(t, paths["A.dcm"]); got != testsupport.ConvertedPrefix+"jpeg-compressed" {
		t.Fatalf("A not converted: %q", got)
	}
	if got := testsupport.ReadString(t, paths["B.dcm"]); got != testsupport.ConvertedPrefix+"implicit-little" {
		t.Fatalf("B not converted: %q", got)
	}
	if got := testsupport.ReadString(t, paths["C.dcm"]); got != "corrupt" {
		t.Fatalf("C modified: %q", got)
	}
	testsupport.AssertNoTempArtifacts(t, root)
}

func TestRunPoolSizeDoesNotChangeResult(t *testing.T) {
	conv := newRealConverter(t,
		testsupport.MatchTool("dcmdjpeg", "*-j.dcm"),
		testsupport.MatchTool("dcmconv", "*-c.dcm", "*-j.dcm"),
	)
	records := map[string]string{}
	for i := range 12 {
		suffix := []string{"j", "c", "x"}[i%3]
		records[fmt.Sprintf("series%d/IM%02d-%s.dcm", i%2, i, suffix)] = fmt.Sprintf("record-%d", i)
	}

	snapshots := make([]map[string]string, 0, 2)
	for _, workers := range []int{1, 4} {
		root := t.TempDir()
		paths := testsupport.WriteRecords(t, root, records)
		list := make([]string, 0, len(paths))
		for _, p := range paths {
			list = append(list, p)
		}
		report, err := pipeline.Run(context.Background(), list, pipeline.Options{Converter: conv, Workers: workers})
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		if report.Succeeded != 8 || report.Failed != 4 {
			t.Fatalf("workers=%d: unexpected report %+v", workers, report)
		}
		testsupport.AssertNoTempArtifacts(t, root)
		snapshots = append(snapshots, testsupport.SnapshotTree(t, root))
	}
	if !reflect.DeepEqual(snapshots[0], snapshots[1]) {
		t.Fatalf("pool sizes produced different trees:\n%v\n%v", snapshots[0], snapshots[1])
	}
}

func TestRunRecordsToJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubTools(
		testsupport.MatchTool("dcmdjpeg", "ok.dcm"),
		testsupport.FailTool("dcmconv", 1),
	))
	conv := testsupport.NewConverter(t, cfg)
	store := testsupport.MustOpenJournal(t, cfg)
	root := t.TempDir()
	paths := testsupport.WriteRecords(t, root, map[string]string{"ok.dcm": "a", "bad.dcm": "b"})

	ctx := context.Background()
	if err := store.BeginRun(ctx, testsupport.JournalRun("run-1", root)); err != nil {
		t.Fatal(err)
	}
	_, err := pipeline.Run(ctx, []string{paths["ok.dcm"], paths["bad.dcm"]}, pipeline.Options{
		Converter: conv,
		RunID:     "run-1",
		Recorder:  store.Recorder("run-1"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	failures, err := store.Failures(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Path != filepath.Join(root, "bad.dcm") || failures[0].Tool != "dcmconv" {
		t.Fatalf("unexpected journal failures %+v", failures)
	}
}
