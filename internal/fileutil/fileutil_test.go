package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReplacePreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".a.dcm.tmp")
	dst := filepath.Join(dir, "a.dcm")

	if err := os.WriteFile(dst, []byte("original"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("converted"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Replace(src, dst, 0o640); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "converted" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("expected mode 0640, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected temp file consumed, stat err=%v", err)
	}
}

func TestReplaceMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.dcm")
	if err := os.WriteFile(dst, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Replace(filepath.Join(dir, "missing"), dst, 0o644); err == nil {
		t.Fatal("expected error for missing source")
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "original" {
		t.Fatalf("destination modified: %q", got)
	}
}

func TestReset(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "reset-*")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("stale bytes"); err != nil {
		t.Fatal(err)
	}
	if err := Reset(f); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := f.WriteString("new"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected reset file to hold %q, got %q", "new", got)
	}
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	da, err := Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatal(err)
	}
	if da != db || len(da) != 64 {
		t.Fatalf("unexpected digests %q %q", da, db)
	}
	if _, err := Digest(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSyncDir(t *testing.T) {
	if err := SyncDir(t.TempDir()); err != nil {
		t.Fatalf("SyncDir: %v", err)
	}
	if err := SyncDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
