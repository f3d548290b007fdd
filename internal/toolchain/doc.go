// Package toolchain models the ordered list of external converters used to
// rewrite a record into Explicit VR Little Endian.
//
// A Chain is built once from configuration and shared read-only by every
// worker. Each Spec carries the command, an argument template with {input}
// and {output} placeholders, the exit statuses that count as success, and an
// optional per-invocation timeout. Success is judged on exit status alone;
// the converter never inspects file content.
package toolchain
