package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"dcmcanon/internal/convert"
	"dcmcanon/internal/logging"
	"dcmcanon/internal/pipeline"
)

func TestDescribe(t *testing.T) {
	ok := pipeline.Event{Outcome: convert.Outcome{Path: "/data/IM0001.dcm", Success: true, Tool: "dcmdjpeg"}, Succeeded: 3}
	if got := Describe(ok); got != "IM0001.dcm (dcmdjpeg) ok=3" {
		t.Fatalf("unexpected description %q", got)
	}
	failed := pipeline.Event{Outcome: convert.Outcome{Path: "/data/C.dcm", Tool: "dcmconv"}, Succeeded: 3}
	if got := Describe(failed); got != "C.dcm (failed) ok=3" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestBarRendersAndFinishes(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf)
	bar.Start("run", 2)
	bar.FileDone(pipeline.Event{Outcome: convert.Outcome{Path: "/a.dcm", Success: true, Tool: "dcmconv"}, Done: 1, Total: 2, Succeeded: 1})
	bar.Finish(pipeline.Report{Total: 2, Succeeded: 1, Failed: 1})

	out := buf.String()
	if !strings.Contains(out, "converting") && !strings.Contains(out, "ok=") {
		t.Fatalf("expected bar output, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected bar to end its line, got %q", out)
	}
	if IsTerminal(&buf) {
		t.Fatal("buffer must not be treated as a terminal")
	}
}

func TestBarIgnoresCallsBeforeStart(t *testing.T) {
	bar := NewBar(&bytes.Buffer{})
	bar.FileDone(pipeline.Event{})
	bar.Finish(pipeline.Report{})
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	reporter := NewLog(logger)
	reporter.Start("run-1", 20)
	for i := 1; i <= 20; i++ {
		outcome := convert.Outcome{Path: "/data/x.dcm", Success: i != 7, Tool: "dcmconv"}
		if !outcome.Success {
			outcome.Err = errors.New("all tiers failed")
			outcome.Reason = "tools_rejected"
		}
		reporter.FileDone(pipeline.Event{Outcome: outcome, Done: i, Total: 20})
	}
	reporter.Finish(pipeline.Report{Total: 20, Succeeded: 19, Failed: 1})

	out := buf.String()
	if got := strings.Count(out, `"msg":"conversion progress"`); got != 11 {
		t.Fatalf("expected 11 sampled progress lines, got %d\n%s", got, out)
	}
	if got := strings.Count(out, `"msg":"record left unconverted"`); got != 1 {
		t.Fatalf("expected one failure line, got %d", got)
	}
	if !strings.Contains(out, `"msg":"conversion finished"`) || !strings.Contains(out, `"msg":"conversion started"`) {
		t.Fatalf("missing start/finish lines:\n%s", out)
	}
}

type countingReporter struct{ starts, events, finishes int }

func (c *countingReporter) Start(string, int)       { c.starts++ }
func (c *countingReporter) FileDone(pipeline.Event) { c.events++ }
func (c *countingReporter) Finish(pipeline.Report)  { c.finishes++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	m := Multi{a, b}
	m.Start("run", 1)
	m.FileDone(pipeline.Event{})
	m.FileDone(pipeline.Event{})
	m.Finish(pipeline.Report{})
	for _, c := range []*countingReporter{a, b} {
		if c.starts != 1 || c.events != 2 || c.finishes != 1 {
			t.Fatalf("unexpected counts %+v", c)
		}
	}
}
