// Package pipeline fans a batch of records out to a bounded pool of
// converters and gathers exactly one outcome per record.
//
// Run owns three kinds of goroutine:
//   - a feeder that hands targets to workers and, once the context is
//     canceled, turns every target it never handed out into a canceled
//     outcome;
//   - the workers, each converting one record at a time;
//   - a reporter pump that delivers per-record events to the Reporter from
//     a bounded buffer, dropping (and counting) events when the reporter
//     falls behind.
//
// The calling goroutine is the collector: it consumes outcomes in arrival
// order, keeps the tally, and appends every outcome to the Recorder. Outcomes
// are never dropped; only reporter events are.
package pipeline
