package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFanoutFiltersPerHandlerLevel(t *testing.T) {
	var first, second bytes.Buffer
	levelInfo := new(slog.LevelVar)
	levelDebug := new(slog.LevelVar)
	levelDebug.Set(slog.LevelDebug)

	logger := slog.New(newFanoutHandler(newConsoleHandler(&first, levelInfo, false), newJSONHandler(&second, levelDebug, false)))

	logger.Debug("debug only")
	logger.Info("shared line", String(FieldTool, "dcmdjpeg"))

	if strings.Contains(first.String(), "debug only") {
		t.Fatalf("info handler should skip debug records: %q", first.String())
	}
	if !strings.Contains(first.String(), "shared line") {
		t.Fatalf("expected info line in console output: %q", first.String())
	}
	if !strings.Contains(second.String(), "debug only") || !strings.Contains(second.String(), "shared line") {
		t.Fatalf("expected both lines in json output: %q", second.String())
	}
}

func TestFanoutHandlerCollapsesTrivialSets(t *testing.T) {
	if _, ok := newFanoutHandler().(NoopHandler); !ok {
		t.Fatal("expected noop handler for empty fanout")
	}
	single := newJSONHandler(&bytes.Buffer{}, new(slog.LevelVar), false)
	if got := newFanoutHandler(nil, single); got != single {
		t.Fatal("expected single handler to be returned directly")
	}
}

func TestFanoutHandlerPropagatesAttrs(t *testing.T) {
	var first, second bytes.Buffer
	lvl := new(slog.LevelVar)
	handler := newFanoutHandler(newJSONHandler(&first, lvl, false), newJSONHandler(&second, lvl, false))
	handler = handler.WithAttrs([]slog.Attr{slog.String(FieldRunID, "run-1")})

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, out := range []string{first.String(), second.String()} {
		if !strings.Contains(out, `"run_id":"run-1"`) {
			t.Fatalf("expected run_id attr, got %q", out)
		}
	}
}
