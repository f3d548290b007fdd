package progress

import "dcmcanon/internal/pipeline"

// Multi forwards every call to each reporter in order.
type Multi []pipeline.Reporter

func (m Multi) Start(runID string, total int) {
	for _, r := range m {
		r.Start(runID, total)
	}
}

func (m Multi) FileDone(ev pipeline.Event) {
	for _, r := range m {
		r.FileDone(ev)
	}
}

func (m Multi) Finish(report pipeline.Report) {
	for _, r := range m {
		r.Finish(report)
	}
}
