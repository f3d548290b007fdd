package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose modification time is
// older than retentionDays and returns how many were removed. Zero disables
// pruning. Files named in any target's Exclude list are never removed.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	sweep := retentionSweep{
		logger: logger,
		cutoff: time.Now().AddDate(0, 0, -retentionDays),
		keep:   map[string]bool{},
	}
	for _, target := range targets {
		for _, path := range target.Exclude {
			sweep.protect(path)
		}
	}
	for _, target := range targets {
		sweep.prune(target)
	}
	if sweep.removed > 0 && logger != nil {
		logger.Debug("old run logs pruned",
			Int("files", sweep.removed),
			String("freed", humanize.Bytes(uint64(sweep.freed))),
			String(FieldEventType, "log_pruned"),
		)
	}
	return sweep.removed
}

type retentionSweep struct {
	logger  *slog.Logger
	cutoff  time.Time
	keep    map[string]bool
	removed int
	freed   int64
}

func (s *retentionSweep) protect(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		s.keep[abs] = true
	}
}

func (s *retentionSweep) prune(target RetentionTarget) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}
	for _, match := range matches {
		if abs, err := filepath.Abs(match); err == nil {
			match = abs
		}
		if s.keep[match] {
			continue
		}
		info, err := os.Lstat(match)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(s.cutoff) {
			continue
		}
		if err := os.Remove(match); err != nil {
			WarnWithContext(s.logger, "log retention remove failed; file remains", "log_retention_failed",
				String("log_file", match),
				Error(err),
				String(FieldErrorHint, "check permissions on logging.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		s.removed++
		s.freed += info.Size()
	}
}
