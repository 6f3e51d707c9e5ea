package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"tunefetch/internal/services"
)

func TestPrettyHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("job started", String(FieldComponent, "workflow"), String(FieldJobID, "abc"))

	line := buf.String()
	if !strings.Contains(line, "INFO workflow: job started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "job_id=abc") {
		t.Fatalf("missing job_id attr: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted, not repeated: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("msg", String("title", "two words"))

	if !strings.Contains(buf.String(), `title="two words"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestWithContextAnnotatesJobFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := services.WithJobID(context.Background(), "j-1")
	ctx = services.WithStage(ctx, "acquiring")
	WithContext(ctx, logger).Info("attempt")

	line := buf.String()
	if !strings.Contains(line, "job_id=j-1") || !strings.Contains(line, "stage=acquiring") {
		t.Fatalf("missing context fields: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(0, "download") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(4, "download") {
		t.Fatal("same bucket should be suppressed")
	}
	if !s.ShouldLog(12, "download") {
		t.Fatal("next bucket should log")
	}
	if !s.ShouldLog(12, "upload") {
		t.Fatal("stage change should log")
	}
	if !s.ShouldLog(100, "upload") {
		t.Fatal("completion should log")
	}
	s.Reset()
	if !s.ShouldLog(0, "download") {
		t.Fatal("reset should allow logging again")
	}
}
