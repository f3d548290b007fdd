package journal

import (
	"context"

	"dcmcanon/internal/convert"
)

// RunRecorder appends outcomes for a single run.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a recorder bound to runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// Record stores a conversion outcome.
func (r *RunRecorder) Record(ctx context.Context, outcome convert.Outcome) error {
	return r.store.Record(ctx, r.runID, EntryFromOutcome(outcome))
}

// EntryFromOutcome converts a conversion outcome into a journal entry.
func EntryFromOutcome(outcome convert.Outcome) Entry {
	entry := Entry{
		Path:     outcome.Path,
		Success:  outcome.Success,
		Tool:     outcome.Tool,
		Reason:   outcome.Reason,
		Attempts: len(outcome.Attempts),
		Size:     outcome.Size,
		Elapsed:  outcome.Elapsed,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	return entry
}
