// Package preflight provides readiness checks run before any record is
// touched: the root must be a directory the process can list, write and
// rename within, the state and log directories must be usable, and every
// converter in the chain must resolve.
//
// The run and check commands share these functions so the table printed by
// "dcmcanon check" matches what a run enforces.
package preflight
