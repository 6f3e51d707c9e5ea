package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "b.mp3")

	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if Exists(src) {
		t.Fatal("source should be gone after move")
	}
	size, err := FileSize(dst)
	if err != nil || size != 5 {
		t.Fatalf("dest size: %d err: %v", size, err)
	}
}

func TestFileSizeRejectsDirectory(t *testing.T) {
	if _, err := FileSize(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}
