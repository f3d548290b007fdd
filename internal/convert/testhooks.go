package convert

var beforeCommit func(tempPath, target string) error

// SetBeforeCommitHookForTests installs fn to run after a tier succeeded and
// before the temporary file replaces the record. A non-nil error aborts the
// commit. It returns a restore function.
func SetBeforeCommitHookForTests(fn func(tempPath, target string) error) func() {
	prev := beforeCommit
	beforeCommit = fn
	return func() {
		beforeCommit = prev
	}
}
