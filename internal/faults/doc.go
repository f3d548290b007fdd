// Package faults defines the error markers shared by the conversion pipeline.
//
// Every failure that crosses a package boundary is tagged with one of the
// sentinel markers through Wrap, so callers can classify it with errors.Is
// instead of string matching. Configuration faults abort a run before any
// file is touched; every other marker describes a per-file failure that the
// coordinator records and moves past.
package faults
