// Package convert rewrites a single record in place through the tool chain.
//
// Every conversion writes into a private temporary file next to the record
// and only replaces the record by atomic rename once a tier has succeeded.
// Whatever happens (tool rejection, crash of a tool, filesystem error,
// cancellation or a panic inside the converter) the record is left either
// byte-identical to its original content or fully replaced, and the
// temporary file is removed.
package convert
