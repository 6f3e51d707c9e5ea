package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunefetch/internal/config"
)

const userAgent = "tunefetch/0.1.0"

// Service is the operator notification surface. Chat replies to the
// requesting user are separate; these are push alerts for whoever runs the
// bot.
type Service interface {
	NotifyJobCompleted(ctx context.Context, title, route string) error
	NotifyJobFailed(ctx context.Context, err error, contextLabel string) error
	NotifyConfigurationGap(ctx context.Context, detail string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		errors:      cfg.Notifications.Errors,
		completions: cfg.Notifications.Completions,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	errors      bool
	completions bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title, route string) error {
	if !n.completions {
		return nil
	}
	title = strings.TrimSpace(title)
	route = strings.TrimSpace(route)
	if route == "" {
		route = "unknown"
	}
	data := payload{
		title:   "Tunefetch - Delivered",
		message: fmt.Sprintf("Delivered: %s (%s)", title, route),
		tags:    []string{"tunefetch", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Job failed")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Tunefetch - Error",
		message:  builder.String(),
		tags:     []string{"tunefetch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConfigurationGap(ctx context.Context, detail string) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:    "Tunefetch - Configuration Gap",
		message:  fmt.Sprintf("Operator action required: %s", strings.TrimSpace(detail)),
		tags:     []string{"tunefetch", "config", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tunefetch - Test",
		message:  "Notification system test",
		tags:     []string{"tunefetch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewNop returns a Service that drops every event.
func NewNop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, error, string) error     { return nil }
func (noopService) NotifyConfigurationGap(context.Context, string) error     { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
