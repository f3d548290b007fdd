package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dcmcanon/internal/logging"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "convert")
	logger.Info("record converted",
		logging.String(logging.FieldPath, "/data/a.dcm"),
		logging.String(logging.FieldTool, "dcmconv"),
		logging.Int64("output_bytes", 2048),
		logging.String(logging.FieldRunID, "hidden-at-info"),
	)

	out := buf.String()
	for _, fragment := range []string{"INFO  convert | record converted", "    File: /data/a.dcm", "    Tool: dcmconv", "    Output Bytes: 2.0 kB", "(+1 hidden)"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, "hidden-at-info") {
		t.Fatalf("expected run id to be hidden at info level:\n%s", out)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("tier failed", logging.Error(errors.New("exit status 1")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["level"] != "warn" || payload["msg"] != "tier failed" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "temp cleanup failed", "temp_cleanup_failed")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %s in payload %v", key, payload)
		}
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "dcmcanon-old.log")
	fresh := filepath.Join(dir, "dcmcanon-new.log")
	current := filepath.Join(dir, "dcmcanon-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{Dir: dir, Pattern: "dcmcanon-*.log", Exclude: []string{current}})
	if removed != 1 {
		t.Fatalf("expected one file pruned, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}

	if logging.CleanupOldLogs(logging.NewNop(), 0, logging.RetentionTarget{Dir: dir}) != 0 {
		t.Fatal("expected retention 0 to disable pruning")
	}
}

func TestFileLevelIndependentOfConsole(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "warn",
		FileLevel:   "debug",
		OutputPaths: []string{logPath},
		Writer:      &console,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("per-record detail")
	logger.Warn("tier failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "per-record detail") || !strings.Contains(string(content), "tier failed") {
		t.Fatalf("expected both records in file:\n%s", content)
	}
	if strings.Contains(console.String(), "per-record detail") {
		t.Fatalf("console should filter debug records:\n%s", console.String())
	}
	if !strings.Contains(console.String(), "tier failed") {
		t.Fatalf("expected warning on console:\n%s", console.String())
	}
}
