package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"dcmcanon/internal/config"
	"dcmcanon/internal/logging"
	"dcmcanon/internal/logs"
)

// newRunLogger builds the logger for one run. Output always goes to a per-run
// file under the log directory at logging.file_level. Console output is added
// unless quiet, which keeps log lines from tearing the progress bar.
func newRunLogger(cfg *config.Config, runID string, console io.Writer, quiet bool) (*slog.Logger, string, error) {
	logPath := filepath.Join(cfg.Paths.LogDir, logs.FileName(time.Now(), runID))

	opts := logging.Options{
		Level:       cfg.Logging.Level,
		FileLevel:   cfg.Logging.FileLevel,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
	}
	if !quiet {
		opts.Writer = console
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	return logger, logPath, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
