package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"dcmcanon/internal/convert"
	"dcmcanon/internal/faults"
	"dcmcanon/internal/logging"
)

// Converter processes one record. Implementations must be safe for
// concurrent use and always return an outcome for the given path.
type Converter interface {
	Convert(ctx context.Context, path string) convert.Outcome
}

// Recorder persists outcomes. It is called from the collector goroutine only.
type Recorder interface {
	Record(ctx context.Context, outcome convert.Outcome) error
}

// Options configure a run.
type Options struct {
	Converter Converter
	// Workers bounds concurrent conversions. Zero means one per CPU.
	Workers int
	// EventBuffer bounds queued reporter events.
	EventBuffer int
	RunID       string
	Root        string
	Recorder    Recorder
	Reporter    Reporter
	Logger      *slog.Logger
}

type result struct {
	outcome convert.Outcome
	worker  int
}

// Run converts every target and returns once each has exactly one outcome.
// Duplicate targets are processed once. On cancellation, in-flight tools are
// stopped through ctx, targets never started are reported as canceled
// failures, and the returned error wraps faults.ErrCanceled; the report is
// complete either way.
func Run(ctx context.Context, targets []string, opts Options) (Report, error) {
	if opts.Converter == nil {
		return Report{}, faults.Wrap(faults.ErrConfiguration, "pipeline", "run", "converter is required", nil)
	}
	start := time.Now()
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	if opts.RunID != "" {
		logger = logger.With(logging.String(logging.FieldRunID, opts.RunID))
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	targets = dedupe(targets)
	workers := poolSize(opts.Workers, len(targets))
	t := newTally(opts.RunID, opts.Root, workers, len(targets))

	logger.Debug("pipeline starting",
		logging.Int("total", len(targets)),
		logging.Int("workers", workers),
		logging.String(logging.FieldEventType, "pipeline_start"),
	)
	reporter.Start(opts.RunID, len(targets))
	events := newPump(reporter, opts.EventBuffer)

	jobs := make(chan string)
	results := make(chan result, workers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for idx, target := range targets {
			select {
			case jobs <- target:
				continue
			case <-ctx.Done():
			}
			for _, skipped := range targets[idx:] {
				results <- result{outcome: canceledOutcome(skipped, ctx.Err()), worker: -1}
			}
			return
		}
	}()

	for id := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- result{outcome: convertOne(ctx, logger, opts.Converter, id, path), worker: id}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Outcomes of a canceled run are still journaled.
	recordCtx := context.WithoutCancel(ctx)
	for res := range results {
		outcome := res.outcome
		t.add(outcome)
		if opts.Recorder != nil {
			if err := opts.Recorder.Record(recordCtx, outcome); err != nil {
				t.report.RecordErrors++
				logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
					logging.String(logging.FieldPath, outcome.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check journal.path permissions and free space"),
					logging.String(logging.FieldImpact, "outcome missing from run history"),
				)
			}
		}
		logger.Debug("record finished",
			logging.String(logging.FieldPath, outcome.Path),
			logging.Bool("success", outcome.Success),
			logging.String(logging.FieldTool, outcome.Tool),
			logging.String("reason", outcome.Reason),
			logging.Int(logging.FieldWorker, res.worker),
		)
		events.send(Event{
			Outcome:   outcome,
			Worker:    res.worker,
			Done:      t.done(),
			Total:     t.report.Total,
			Succeeded: t.report.Succeeded,
			Failed:    t.report.Failed,
		})
	}

	t.report.DroppedEvents = events.close()
	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		t.report.Canceled = true
		err = faults.Wrap(faults.ErrCanceled, "pipeline", "run", "run canceled", ctxErr)
	}
	report := t.finish(time.Since(start))
	reporter.Finish(report)

	if !report.Balanced() {
		// Unreachable unless a worker lost an outcome.
		return report, faults.Wrap(faults.ErrInternal, "pipeline", "run",
			fmt.Sprintf("accounting mismatch: %d succeeded + %d failed != %d total", report.Succeeded, report.Failed, report.Total), err)
	}
	logger.Debug("pipeline finished",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("dropped_events", report.DroppedEvents),
		logging.Duration("elapsed", report.Elapsed),
		logging.String(logging.FieldEventType, "pipeline_finish"),
	)
	return report, err
}

// convertOne isolates a single conversion so a fault affects only its record.
func convertOne(ctx context.Context, logger *slog.Logger, conv Converter, worker int, path string) (outcome convert.Outcome) {
	if err := ctx.Err(); err != nil {
		return canceledOutcome(path, err)
	}
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "worker panic recovered", "worker_panic",
				logging.String(logging.FieldPath, path),
				logging.Int(logging.FieldWorker, worker),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err := faults.Wrap(faults.ErrInternal, "pipeline", "worker", fmt.Sprint(r), nil)
			outcome = convert.Failed(path, err, faults.Reason(err))
		}
	}()
	outcome = conv.Convert(ctx, path)
	if outcome.Path == "" {
		outcome.Path = path
	}
	if !outcome.Success && outcome.Reason == "" {
		if outcome.Err == nil {
			outcome.Err = errors.New("conversion failed")
		}
		outcome.Reason = faults.Reason(outcome.Err)
	}
	return outcome
}

func canceledOutcome(path string, cause error) convert.Outcome {
	err := faults.Wrap(faults.ErrCanceled, "pipeline", "dispatch", "not started", cause)
	return convert.Failed(path, err, faults.Reason(err))
}

func poolSize(requested, targets int) int {
	size := requested
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if targets > 0 && size > targets {
		size = targets
	}
	return max(size, 1)
}

func dedupe(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
