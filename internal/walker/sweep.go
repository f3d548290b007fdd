package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dcmcanon/internal/convert"
	"dcmcanon/internal/logging"
)

// SweepResult contains the outcome of a temp artifact sweep.
type SweepResult struct {
	Removed []string
	Errors  []WalkError
}

// SweepStale removes conversion scratch files under root whose modification
// time is older than maxAge. A zero maxAge removes every artifact found.
// Callers must hold the root's run lock so live temp files are never swept.
func SweepStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	cutoff := time.Now().Add(-maxAge)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			result.Errors = append(result.Errors, WalkError{Path: path, Error: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() || !convert.IsTempArtifact(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, WalkError{Path: path, Error: err})
			return nil
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, WalkError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale temp file",
					logging.String(logging.FieldPath, path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "temp_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check directory permissions under the root"),
					logging.String(logging.FieldImpact, "scratch file remains next to its record"),
				)
			}
			return nil
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp file",
				logging.String(logging.FieldPath, path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "temp_sweep"),
			)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		result.Errors = append(result.Errors, WalkError{Path: root, Error: err})
	}
	return result
}
