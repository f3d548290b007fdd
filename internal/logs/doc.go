// Package logs names, locates, and tails per-run log files.
//
// Every run writes to its own file under the log directory, named after the
// run's start time and identifier so a run can be found again from the
// journal. Tail streams those files with bounded memory, supports "last N
// lines" reads, and polls for new lines in follow mode until the caller's
// context ends.
package logs
