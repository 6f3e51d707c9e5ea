package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"tunefetch/internal/job"
	"tunefetch/internal/logging"
	"tunefetch/internal/services/telegram"
)

// Sender uploads one audio message to a chat.
type Sender interface {
	SendAudio(ctx context.Context, chatID int64, audio telegram.Audio) (telegram.Message, error)
}

// Options tunes progress reporting.
type Options struct {
	ProgressInterval    time.Duration
	ProgressPercentStep int
}

// Deliverer routes and uploads artifacts. The streamed sender may be nil;
// the router then refuses artifacts at or above the threshold.
type Deliverer struct {
	router   Router
	direct   Sender
	streamed Sender
	opts     Options
	logger   *slog.Logger
}

// New constructs a Deliverer. streamed may be nil when no self-hosted Bot
// API server is configured.
func New(thresholdBytes int64, direct, streamed Sender, opts Options, logger *slog.Logger) (*Deliverer, error) {
	if direct == nil {
		return nil, fmt.Errorf("direct sender required")
	}
	if thresholdBytes <= 0 {
		return nil, fmt.Errorf("invalid delivery threshold %d", thresholdBytes)
	}
	return &Deliverer{
		router:   NewRouter(thresholdBytes, streamed != nil),
		direct:   direct,
		streamed: streamed,
		opts:     opts,
		logger:   logging.WithComponent(logger, "deliver"),
	}, nil
}

// Deliver uploads the artifact to chatID over the routed channel. sourceURL
// is shown as the caption on streamed uploads so the recipient can tell where
// a large file came from. onProgress receives throttled human-readable
// progress lines; it may be nil.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, artifact *job.Artifact, sourceURL string, onProgress func(text string)) (Route, error) {
	if artifact == nil {
		return "", fmt.Errorf("no artifact to deliver")
	}

	route, err := d.router.Decide(artifact.SizeBytes)
	if err != nil {
		return "", err
	}
	sender := d.direct
	if route == RouteStreamed {
		sender = d.streamed
	}

	logging.WithContext(ctx, d.logger).Info("delivering artifact",
		logging.Int64(logging.FieldChatID, chatID),
		logging.String("route", string(route)),
		logging.String("size", humanize.IBytes(uint64(artifact.SizeBytes))),
		logging.String("title", artifact.Title),
	)

	reporter := NewReporter(d.opts.ProgressInterval, d.opts.ProgressPercentStep, func(percent float64, detail string) {
		if onProgress != nil {
			onProgress(fmt.Sprintf("Uploading: %.0f%% (%s)", percent, detail))
		}
	})
	defer reporter.Close()

	totalBytes := artifact.SizeBytes
	audio := telegram.Audio{
		Path:            artifact.Path,
		Title:           artifact.Title,
		DurationSeconds: artifact.DurationSeconds,
		Progress: func(sent int64) {
			percent := float64(sent) / float64(totalBytes) * 100
			reporter.Update(percent, fmt.Sprintf("%s / %s", humanize.IBytes(uint64(sent)), humanize.IBytes(uint64(totalBytes))))
		},
	}
	if route == RouteStreamed && sourceURL != "" {
		audio.Caption = "Audio from: " + sourceURL
	}

	if _, err := sender.SendAudio(ctx, chatID, audio); err != nil {
		return route, &Error{Route: route, Err: err}
	}
	reporter.Finish(humanize.IBytes(uint64(totalBytes)))
	return route, nil
}
