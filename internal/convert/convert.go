package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"dcmcanon/internal/faults"
	"dcmcanon/internal/fileutil"
	"dcmcanon/internal/logging"
	"dcmcanon/internal/toolchain"
)

// Options tune converter behaviour.
type Options struct {
	// RequireOutput rejects a tier that exits successfully but leaves an
	// empty output for a non-empty record.
	RequireOutput bool
	Logger        *slog.Logger
}

// Converter applies a tool chain to individual records. It is safe for
// concurrent use; each call owns its own temporary file.
type Converter struct {
	chain         toolchain.Chain
	requireOutput bool
	logger        *slog.Logger
}

// New returns a converter for chain.
func New(chain toolchain.Chain, opts Options) *Converter {
	return &Converter{
		chain:         chain,
		requireOutput: opts.RequireOutput,
		logger:        logging.NewComponentLogger(opts.Logger, "convert"),
	}
}

// Convert tries each tier in order against path and commits the first
// successful output over it. It never returns without an outcome.
func (c *Converter) Convert(ctx context.Context, path string) (outcome Outcome) {
	start := time.Now()
	outcome.Path = path
	var tempPath string
	logger := c.logger.With(logging.String(logging.FieldPath, path))

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Err = faults.Wrap(faults.ErrInternal, "convert", "panic", fmt.Sprint(r), nil)
			logging.ErrorWithContext(logger, "conversion panicked", "conversion_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report this failure; the record was left untouched"),
			)
		}
		if !outcome.Success && tempPath != "" {
			if err := os.Remove(tempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(logger, "temp cleanup failed", "temp_cleanup_failed",
					logging.String("temp_path", tempPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "run dcmcanon clean on the root to sweep leftovers"),
					logging.String(logging.FieldImpact, "stray temporary file remains next to the record"),
				)
			}
		}
		outcome.Reason = faults.Reason(outcome.Err)
		outcome.Elapsed = time.Since(start)
	}()

	info, err := os.Stat(path)
	if err != nil {
		marker := faults.ErrFilesystem
		if errors.Is(err, fs.ErrNotExist) {
			marker = faults.ErrNotFound
		}
		outcome.Err = faults.Wrap(marker, "convert", "stat", "", err)
		return outcome
	}
	if !info.Mode().IsRegular() {
		outcome.Err = faults.Wrap(faults.ErrFilesystem, "convert", "stat", "not a regular file", nil)
		return outcome
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), TempPattern(filepath.Base(path)))
	if err != nil {
		outcome.Err = faults.Wrap(faults.ErrFilesystem, "convert", "create temp", "", err)
		return outcome
	}
	tempPath = tmp.Name()

	winner, err := c.runChain(ctx, logger, tmp, path, info.Size(), &outcome)
	if closeErr := tmp.Close(); closeErr != nil && err == nil && winner {
		err = faults.Wrap(faults.ErrFilesystem, "convert", "close temp", "", closeErr)
		winner = false
	}
	if !winner {
		outcome.Err = err
		return outcome
	}

	if beforeCommit != nil {
		if err := beforeCommit(tempPath, path); err != nil {
			outcome.Err = faults.Wrap(faults.ErrInternal, "convert", "commit", "aborted before commit", err)
			return outcome
		}
	}

	if err := fileutil.Replace(tempPath, path, info.Mode()); err != nil {
		outcome.Err = faults.Wrap(faults.ErrFilesystem, "convert", "commit", "", err)
		return outcome
	}
	tempPath = ""
	outcome.Success = true
	if err := fileutil.SyncDir(filepath.Dir(path)); err != nil {
		logging.WarnWithContext(logger, "directory sync failed after commit", "dir_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "converted record may revert to its original after a power loss"),
		)
	}
	if committed, err := os.Stat(path); err == nil {
		outcome.Size = committed.Size()
	}

	logger.Debug("record converted",
		logging.String(logging.FieldEventType, "record_converted"),
		logging.String(logging.FieldTool, outcome.Tool),
		logging.Int64("input_bytes", info.Size()),
		logging.Int64("output_bytes", outcome.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return outcome
}

// runChain runs the tiers in order until one succeeds. It reports whether a
// tier won and, if not, the error describing the last failure.
func (c *Converter) runChain(ctx context.Context, logger *slog.Logger, tmp *os.File, path string, inputSize int64, outcome *Outcome) (bool, error) {
	if len(c.chain) == 0 {
		return false, faults.Wrap(faults.ErrConfiguration, "convert", "toolchain", "no tools configured", nil)
	}
	var lastErr error
	for _, spec := range c.chain {
		if err := ctx.Err(); err != nil {
			return false, faults.Wrap(faults.ErrCanceled, "convert", spec.Name, "run canceled", err)
		}
		if err := fileutil.Reset(tmp); err != nil {
			return false, faults.Wrap(faults.ErrFilesystem, "convert", "reset temp", "", err)
		}

		attempt := spec.Run(ctx, path, tmp.Name())
		if attempt.Success && c.requireOutput && inputSize > 0 {
			if written, err := tmp.Stat(); err != nil || written.Size() == 0 {
				attempt.Success = false
				attempt.Err = faults.Wrap(faults.ErrExternalTool, "toolchain", spec.Name, "exited successfully without output", err)
			}
		}
		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.Tool = spec.Name
		if attempt.Success {
			return true, nil
		}

		lastErr = attempt.Err
		logger.Debug("tier failed",
			logging.String(logging.FieldEventType, "tier_failed"),
			logging.String(logging.FieldTool, spec.Name),
			logging.Int("exit_code", attempt.ExitCode),
			logging.Bool("timed_out", attempt.TimedOut),
			logging.String("stderr", attempt.Stderr),
			logging.Error(attempt.Err),
		)
		if errors.Is(attempt.Err, faults.ErrCanceled) {
			return false, attempt.Err
		}
	}
	return false, faults.Wrap(faults.ErrExternalTool, "convert", "toolchain", "all tiers failed", lastErr)
}
