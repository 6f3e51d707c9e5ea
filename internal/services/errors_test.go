package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrExternalTool, "acquire", "yt-dlp", "exit status 1", base)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, base) {
		t.Fatal("cause lost")
	}
	want := "external tool error: acquire: yt-dlp: exit status 1: boom"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "deliver", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsCancellation(t *testing.T) {
	wrapped := fmt.Errorf("attempt aborted: %w", context.Canceled)
	if !IsCancellation(wrapped) {
		t.Fatal("expected cancellation to be detected through wrapping")
	}
	if IsCancellation(errors.New("other")) {
		t.Fatal("unexpected cancellation classification")
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := WithJobID(context.Background(), "j-42")
	ctx = WithStage(ctx, "transcoding")
	ctx = WithChatID(ctx, 77)

	if id, ok := JobIDFromContext(ctx); !ok || id != "j-42" {
		t.Fatalf("job id: %q %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcoding" {
		t.Fatalf("stage: %q %v", stage, ok)
	}
	if chat, ok := ChatIDFromContext(ctx); !ok || chat != 77 {
		t.Fatalf("chat: %d %v", chat, ok)
	}
	if _, ok := JobIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not yield a job id")
	}
}
