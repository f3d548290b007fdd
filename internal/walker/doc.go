// Package walker enumerates the records under a root directory and sweeps
// conversion scratch files left behind by interrupted runs.
package walker
