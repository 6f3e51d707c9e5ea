// Package ffmpeg wraps the ffmpeg and ffprobe command line tools for audio
// extraction and media inspection.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"tunefetch/internal/services"
)

// Encoder defines the behaviour required by the transcoding handler.
type Encoder interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg/ffprobe CLI interactions.
type Client struct {
	ffmpegBinary  string
	ffprobeBinary string
	exec          Executor
}

// New constructs an ffmpeg client.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		return nil, errors.New("ffprobe binary required")
	}
	client := &Client{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ExtractAudio converts the input media into an MP3 file at the given
// bitrate, stripping any video stream.
func (c *Client) ExtractAudio(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error {
	if inputPath == "" || outputPath == "" {
		return errors.New("input and output paths required")
	}
	if bitrateKbps <= 0 {
		return fmt.Errorf("invalid bitrate %d", bitrateKbps)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		outputPath,
	}

	var tail []string
	err := c.exec.Run(ctx, c.ffmpegBinary, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			tail = append(tail, trimmed)
			if len(tail) > 5 {
				tail = tail[len(tail)-5:]
			}
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", "ffmpeg", strings.Join(tail, " | "), err)
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (c *Client) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, errors.New("path required")
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	var lines []string
	if err := c.exec.Run(ctx, c.ffprobeBinary, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "transcode", "ffprobe", "", err)
	}
	if len(lines) == 0 {
		return 0, errors.New("ffprobe reported no duration")
	}
	duration, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", lines[0], err)
	}
	return duration, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Encoder = (*Client)(nil)
