package convert

import (
	"time"

	"dcmcanon/internal/toolchain"
)

// Outcome is the single result produced for one record.
type Outcome struct {
	Path    string
	Success bool
	// Tool is the tier that produced the committed output on success, or the
	// last tier attempted on failure. Empty when no tier ran.
	Tool     string
	Attempts []toolchain.Attempt
	Err      error
	// Reason is the short failure classification from faults.Reason.
	Reason  string
	Size    int64
	Elapsed time.Duration
}

// Failed builds a failure outcome for a record that was never processed.
func Failed(path string, err error, reason string) Outcome {
	return Outcome{Path: path, Err: err, Reason: reason}
}
