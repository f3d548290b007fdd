package progress

import (
	"log/slog"

	"dcmcanon/internal/logging"
	"dcmcanon/internal/pipeline"
)

// Log reports progress as structured log lines. Failures are always logged;
// successes are logged at debug, with an info progress line each time the
// completed share crosses a 10% bucket.
type Log struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLog returns a log reporter.
func NewLog(logger *slog.Logger) *Log {
	return &Log{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
	}
}

func (l *Log) Start(runID string, total int) {
	l.sampler.Reset()
	l.logger.Info("conversion started",
		logging.Int("total", total),
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldEventType, "run_started"),
	)
}

func (l *Log) FileDone(ev pipeline.Event) {
	outcome := ev.Outcome
	if outcome.Success {
		l.logger.Debug("record converted",
			logging.String(logging.FieldPath, outcome.Path),
			logging.String(logging.FieldTool, outcome.Tool),
			logging.Duration("elapsed", outcome.Elapsed),
		)
	} else {
		logging.WarnWithContext(l.logger, "record left unconverted", "record_failed",
			logging.String(logging.FieldPath, outcome.Path),
			logging.String(logging.FieldTool, outcome.Tool),
			logging.String("reason", outcome.Reason),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "run with --log-level debug to see converter stderr"),
			logging.String(logging.FieldImpact, "original record kept unchanged"),
		)
	}
	if l.sampler.ShouldLog(ev.Done, ev.Total) {
		l.logger.Info("conversion progress",
			logging.Int("done", ev.Done),
			logging.Int("total", ev.Total),
			logging.Int("succeeded", ev.Succeeded),
			logging.Int("failed", ev.Failed),
			logging.String(logging.FieldEventType, "run_progress"),
		)
	}
}

func (l *Log) Finish(report pipeline.Report) {
	l.logger.Info("conversion finished",
		logging.Int("total", report.Total),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("dropped_events", report.DroppedEvents),
		logging.Duration("elapsed", report.Elapsed),
		logging.Bool("canceled", report.Canceled),
		logging.String(logging.FieldEventType, "run_finished"),
	)
}
