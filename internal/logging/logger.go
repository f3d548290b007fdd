package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	// FileLevel, when set, is the threshold for OutputPaths. Level then only
	// applies to Writer.
	FileLevel   string
	Development bool
	// Writer, when set, receives output in addition to OutputPaths.
	Writer io.Writer
}

// New constructs a slog logger using the provided options. Writer and the
// files in OutputPaths get separate handlers joined by a fanout, so each side
// filters on its own level.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = "console"
	case "console", "json":
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	level := parseLevel(opts.Level)
	fileLevel := level
	if strings.TrimSpace(opts.FileLevel) != "" {
		fileLevel = parseLevel(opts.FileLevel)
	}

	paths := opts.OutputPaths
	if len(paths) == 0 && opts.Writer == nil {
		paths = []string{"stderr"}
	}

	var handlers []slog.Handler
	if opts.Writer != nil {
		handlers = append(handlers, buildHandler(format, opts.Writer, level, opts.Development))
	}
	if len(paths) > 0 {
		fileWriter, err := openWriters(paths)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, buildHandler(format, fileWriter, fileLevel, opts.Development))
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

func buildHandler(format string, w io.Writer, level slog.Level, development bool) slog.Handler {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	addSource := development || level <= slog.LevelDebug
	if format == "json" {
		return newJSONHandler(w, levelVar, addSource)
	}
	return newConsoleHandler(w, levelVar, addSource)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriters(paths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
