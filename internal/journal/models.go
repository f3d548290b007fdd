package journal

import (
	"errors"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunCanceled    RunStatus = "canceled"
	RunInterrupted RunStatus = "interrupted"
)

var (
	// ErrRunNotFound is returned when no run matches an identifier.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an identifier prefix matches several runs.
	ErrAmbiguousRun = errors.New("run identifier is ambiguous")
)

// Run is one invocation of the pipeline over a root.
type Run struct {
	ID         string
	Root       string
	Status     RunStatus
	Workers    int
	Toolchain  []string
	RetryOf    string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Dropped    int
}

// Duration returns how long the run took, or zero while it is unfinished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is one recorded per-record outcome.
type Entry struct {
	Path       string
	Success    bool
	Tool       string
	Reason     string
	Error      string
	Attempts   int
	Size       int64
	Elapsed    time.Duration
	RecordedAt time.Time
}

// Totals summarizes a finished run.
type Totals struct {
	Status    RunStatus
	Total     int
	Succeeded int
	Failed    int
	Dropped   int
}
