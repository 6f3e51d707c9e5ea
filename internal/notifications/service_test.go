package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tunefetch/internal/config"
)

type captured struct {
	title    string
	priority string
	body     string
}

func newTestService(t *testing.T, errorsOn, completionsOn bool) (Service, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Errors = errorsOn
	cfg.Notifications.Completions = completionsOn
	return NewService(cfg), &requests
}

func TestNotifyJobCompleted(t *testing.T) {
	service, requests := newTestService(t, true, true)

	if err := service.NotifyJobCompleted(context.Background(), "My Song", "direct"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("requests: %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "Tunefetch - Delivered" || !strings.Contains(got.body, "My Song") || !strings.Contains(got.body, "direct") {
		t.Fatalf("request: %+v", got)
	}
}

func TestNotifyJobFailedCarriesHighPriority(t *testing.T) {
	service, requests := newTestService(t, true, true)

	if err := service.NotifyJobFailed(context.Background(), errors.New("boom"), "acquisition"); err != nil {
		t.Fatal(err)
	}
	got := (*requests)[0]
	if got.priority != "high" || !strings.Contains(got.body, "during acquisition") || !strings.Contains(got.body, "boom") {
		t.Fatalf("request: %+v", got)
	}
}

func TestCategoryTogglesSuppressSends(t *testing.T) {
	service, requests := newTestService(t, false, false)

	if err := service.NotifyJobCompleted(context.Background(), "x", "direct"); err != nil {
		t.Fatal(err)
	}
	if err := service.NotifyJobFailed(context.Background(), errors.New("x"), ""); err != nil {
		t.Fatal(err)
	}
	if err := service.NotifyConfigurationGap(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(*requests) != 0 {
		t.Fatalf("suppressed categories still sent: %d", len(*requests))
	}

	// The explicit test notification ignores toggles.
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(*requests) != 1 {
		t.Fatalf("test notification not sent")
	}
}

func TestNoTopicMeansNoop(t *testing.T) {
	cfg := &config.Config{}
	service := NewService(cfg)
	if err := service.NotifyJobFailed(context.Background(), errors.New("x"), ""); err != nil {
		t.Fatalf("noop should never fail: %v", err)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true
	service := NewService(cfg)

	err := service.NotifyConfigurationGap(context.Background(), "no strategies")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
