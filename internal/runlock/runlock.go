// Package runlock serializes runs over the same root directory across
// processes with an advisory file lock kept in the state directory.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the root's lock.
var ErrLocked = errors.New("another dcmcanon run is already processing this root")

// Lock is a held per-root lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// PathFor returns the lock file used for root inside lockDir.
func PathFor(lockDir, root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
}

// Acquire takes the lock for root without blocking.
func Acquire(lockDir, root string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lockPath := PathFor(lockDir, root)
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s, lock %s)", ErrLocked, root, lockPath)
	}
	return &Lock{path: lockPath, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. The lock file is left in place so concurrent acquirers
// never race on its creation.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
