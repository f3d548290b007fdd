package testsupport

import (
	"testing"

	"dcmcanon/internal/config"
	"dcmcanon/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// JournalRun returns a minimal run row for root.
func JournalRun(id, root string) journal.Run {
	return journal.Run{ID: id, Root: root, Workers: 1, Toolchain: []string{"dcmdjpeg", "dcmconv"}}
}
