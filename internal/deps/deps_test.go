package deps

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunefetch/internal/services"
	"tunefetch/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected %s to be available: %s", results[0].Name, results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected %s to be missing", results[1].Name)
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "yt-dlp", Available: true},
		{Name: "FFmpeg", Available: false},
		{Name: "Extra", Available: false, Optional: true},
	}
	err := MissingRequired(statuses)
	if err == nil {
		t.Fatal("expected error for missing required binary")
	}
	if !strings.Contains(err.Error(), "missing required tools: FFmpeg") {
		t.Fatalf("error: %s", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker: %v", err)
	}

	statuses[1].Available = true
	if err := MissingRequired(statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequirementsResolveAgainstStubbedPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := CheckBinaries(Requirements(cfg))
	if err := MissingRequired(statuses); err != nil {
		t.Fatalf("stubbed binaries should satisfy requirements: %v", err)
	}
}
