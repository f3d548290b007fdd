package pipeline

import (
	"sync"

	"dcmcanon/internal/convert"
)

// Event describes one finished record.
type Event struct {
	Outcome convert.Outcome
	Worker  int
	// Done counts outcomes received so far, including this one.
	Done      int
	Total     int
	Succeeded int
	Failed    int
}

// Reporter presents run progress. Start is called before any record is
// dispatched, FileDone once per delivered event in arrival order, and Finish
// exactly once after the last event. Start and Finish run on the goroutine
// calling Run and FileDone on the event pump; each call happens before the
// next, so implementations need no locking.
type Reporter interface {
	Start(runID string, total int)
	FileDone(Event)
	Finish(Report)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Start(string, int) {}

func (NopReporter) FileDone(Event) {}

func (NopReporter) Finish(Report) {}

// pump decouples the collector from a slow reporter.
type pump struct {
	reporter Reporter
	events   chan Event
	dropped  int
	wg       sync.WaitGroup
}

func newPump(reporter Reporter, buffer int) *pump {
	if buffer <= 0 {
		buffer = 1
	}
	p := &pump{reporter: reporter, events: make(chan Event, buffer)}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range p.events {
			p.reporter.FileDone(ev)
		}
	}()
	return p
}

// send never blocks; it reports whether the event was queued.
func (p *pump) send(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		p.dropped++
		return false
	}
}

// close drains the queue and returns the number of dropped events.
func (p *pump) close() int {
	close(p.events)
	p.wg.Wait()
	return p.dropped
}
