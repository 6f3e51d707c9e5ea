// Package transcode converts acquired raw media into the delivery artifact:
// an MP3 named after the media title, with its size and duration recorded.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tunefetch/internal/fileutil"
	"tunefetch/internal/job"
	"tunefetch/internal/logging"
	"tunefetch/internal/services/ffmpeg"
	"tunefetch/internal/services/ytdlp"
)

// Error reports a failed conversion of otherwise valid raw media.
type Error struct {
	InputPath string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode %s: %v", filepath.Base(e.InputPath), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transcoder runs the audio extraction step of the pipeline.
type Transcoder struct {
	encoder     ffmpeg.Encoder
	bitrateKbps int
	logger      *slog.Logger
}

// New constructs a Transcoder producing MP3 output at the given bitrate.
func New(encoder ffmpeg.Encoder, bitrateKbps int, logger *slog.Logger) (*Transcoder, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder required")
	}
	if bitrateKbps <= 0 {
		return nil, fmt.Errorf("invalid bitrate %d", bitrateKbps)
	}
	return &Transcoder{
		encoder:     encoder,
		bitrateKbps: bitrateKbps,
		logger:      logging.WithComponent(logger, "transcode"),
	}, nil
}

const fallbackTitle = "audio"

// Transcode converts media into an MP3 under destDir and returns the
// finished artifact. The artifact filename is derived from the media title
// because the chat surface shows it to the recipient.
func (t *Transcoder) Transcode(ctx context.Context, media ytdlp.RawMedia, destDir string) (*job.Artifact, error) {
	if media.Path == "" {
		return nil, &Error{InputPath: media.Path, Err: fmt.Errorf("no input media")}
	}

	title := strings.TrimSpace(media.Title)
	if title == "" {
		title = fallbackTitle
	}
	outputPath := filepath.Join(destDir, SanitizeFilename(title)+".mp3")

	logger := logging.WithContext(ctx, t.logger)
	logger.Info("extracting audio",
		logging.String("input", filepath.Base(media.Path)),
		logging.String("output", filepath.Base(outputPath)),
		logging.Int("bitrate_kbps", t.bitrateKbps),
	)

	// Encode to a scratch name first so a half-written file can never be
	// mistaken for a finished artifact.
	scratchPath := outputPath + ".part"
	if err := t.encoder.ExtractAudio(ctx, media.Path, scratchPath, t.bitrateKbps); err != nil {
		return nil, &Error{InputPath: media.Path, Err: err}
	}

	size, err := fileutil.FileSize(scratchPath)
	if err != nil {
		return nil, &Error{InputPath: media.Path, Err: fmt.Errorf("inspect output: %w", err)}
	}
	if size == 0 {
		return nil, &Error{InputPath: media.Path, Err: fmt.Errorf("empty output file")}
	}
	if err := fileutil.MoveFile(scratchPath, outputPath); err != nil {
		return nil, &Error{InputPath: media.Path, Err: fmt.Errorf("finalize output: %w", err)}
	}

	duration := media.DurationSeconds
	if duration <= 0 {
		probed, err := t.encoder.ProbeDuration(ctx, outputPath)
		if err != nil {
			logger.Warn("duration probe failed", logging.Error(err))
		} else {
			duration = probed
		}
	}

	return &job.Artifact{
		Path:            outputPath,
		SizeBytes:       size,
		DurationSeconds: duration,
		Title:           title,
	}, nil
}

// SanitizeFilename strips characters that are unsafe in filenames while
// keeping the title recognizable.
func SanitizeFilename(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\x00':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, title)
	mapped = strings.Trim(mapped, " .")
	if mapped == "" {
		return fallbackTitle
	}
	const maxRunes = 120
	if runes := []rune(mapped); len(runes) > maxRunes {
		mapped = strings.Trim(string(runes[:maxRunes]), " .")
	}
	return mapped
}
