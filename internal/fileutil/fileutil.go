package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Reset truncates f to zero length and rewinds it so the next writer starts
// from an empty file.
func Reset(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", f.Name(), err)
	}
	return nil
}

// Replace atomically moves src over dst. src is given mode and flushed to
// disk before the rename. Callers follow up with SyncDir on the parent so the
// new entry survives a crash. Both paths must share a filesystem.
func Replace(src, dst string, mode os.FileMode) error {
	f, err := os.OpenFile(src, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	if err := f.Chmod(mode.Perm()); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod %s: %w", src, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", src, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", src, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(src), err)
	}
	return nil
}

// SyncDir flushes directory metadata (entry creation, rename) to disk.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync directory %s: %w", dir, err)
	}
	return nil
}

// Digest returns the hex SHA256 of the file at path.
func Digest(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
