// Package journal records every pipeline run and per-record outcome in SQLite.
//
// The journal is history, not coordination: it is written by the single
// collector goroutine of a run and read by the history, failures and retry
// commands. Runs left in the running state by a crashed process are marked
// interrupted the next time the same root is processed.
//
// Schema changes bump schemaVersion in schema.go; users delete the journal
// file to adopt the new schema.
package journal
