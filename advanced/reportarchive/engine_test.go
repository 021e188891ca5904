package reportarchive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRotateIfNeededSkipsBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.log")
	if err := os.WriteFile(path, []byte("small"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	engine := NewEngine(NewSizePolicy(1<<20, 16<<20))
	archivePath, err := engine.RotateIfNeeded(path, time.Unix(0, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archivePath != "" {
		t.Fatalf("expected no rotation below threshold, got %q", archivePath)
	}
}

func TestRotateIfNeededCompressesAndTruncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.log")
	contents := bytes.Repeat([]byte("deadlock report line\n"), 100)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	engine := NewEngine(NewSizePolicy(int64(len(contents))-1, int64(len(contents))*100))
	archivePath, err := engine.RotateIfNeeded(path, time.Unix(0, 42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archivePath == "" {
		t.Fatal("expected rotation to produce an archive path")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected original file to still exist: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected original file truncated to 0, got size %d", info.Size())
	}

	restored, err := Restore(archivePath)
	if err != nil {
		t.Fatalf("unexpected error restoring archive: %v", err)
	}
	if !bytes.Equal(restored, contents) {
		t.Fatal("expected restored contents to match the original report")
	}
}

func TestRestoreRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.log.unknown")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := Restore(path); err == nil {
		t.Fatal("expected an error for an unrecognized archive extension")
	}
}
