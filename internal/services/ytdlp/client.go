package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"tunefetch/internal/services"
	"tunefetch/internal/strategy"
)

// ProgressUpdate captures yt-dlp download progress output.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// RawMedia describes the downloaded media handle before transcoding.
type RawMedia struct {
	Path            string
	Title           string
	DurationSeconds float64
}

// Fetcher defines the behaviour required by the acquisition engine.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destDir string, strat strategy.Strategy, progress func(ProgressUpdate)) (RawMedia, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, dir string, onLine func(string)) error
}

// Options configures the shared network profile applied to every attempt.
type Options struct {
	UserAgent string
	GeoBypass bool
	Timeout   time.Duration
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

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary string
	opts   Options
	exec   Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts Options, clientOpts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{binary: binary, opts: opts, exec: commandExecutor{}}
	for _, opt := range clientOpts {
		opt(client)
	}
	return client, nil
}

const outputStem = "source"

// Fetch runs one acquisition attempt into destDir using the given strategy
// and returns the raw media handle. The per-attempt timeout from Options is
// applied on top of ctx.
func (c *Client) Fetch(ctx context.Context, sourceURL, destDir string, strat strategy.Strategy, progress func(ProgressUpdate)) (RawMedia, error) {
	if sourceURL == "" {
		return RawMedia{}, errors.New("source url required")
	}
	if destDir == "" {
		return RawMedia{}, errors.New("destination directory required")
	}

	attemptCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	args := c.buildArgs(sourceURL, destDir, strat)

	var tail outputTail
	err := c.exec.Run(attemptCtx, c.binary, args, destDir, func(line string) {
		tail.add(line)
		if progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			progress(update)
		}
	})
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return RawMedia{}, services.Wrap(services.ErrTimeout, "acquire", "yt-dlp",
				fmt.Sprintf("attempt timed out after %s", c.opts.Timeout), attemptCtx.Err())
		}
		return RawMedia{}, services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", tail.String(), err)
	}

	media, err := collectOutput(destDir)
	if err != nil {
		return RawMedia{}, err
	}
	return media, nil
}

func (c *Client) buildArgs(sourceURL, destDir string, strat strategy.Strategy) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--write-info-json",
		"-f", "bestaudio/best[height<=480]/worst",
		"-o", filepath.Join(destDir, outputStem+".%(ext)s"),
	}
	if c.opts.UserAgent != "" {
		args = append(args, "--user-agent", c.opts.UserAgent)
	}
	if c.opts.GeoBypass {
		args = append(args, "--geo-bypass")
	}
	if extractorArgs := buildExtractorArgs(strat); extractorArgs != "" {
		args = append(args, "--extractor-args", extractorArgs)
	}
	switch {
	case strat.CookieSource == "":
	case strings.HasSuffix(strat.CookieSource, ".txt"):
		args = append(args, "--cookies", strat.CookieSource)
	default:
		args = append(args, "--cookies-from-browser", strat.CookieSource)
	}
	args = append(args, sourceURL)
	return args
}

func buildExtractorArgs(strat strategy.Strategy) string {
	var parts []string
	if len(strat.ClientProfiles) > 0 {
		parts = append(parts, "player_client="+strings.Join(strat.ClientProfiles, ","))
	}
	if len(strat.PlayerSkip) > 0 {
		parts = append(parts, "player_skip="+strings.Join(strat.PlayerSkip, ","))
	}
	if strat.MissingPOT {
		parts = append(parts, "formats=missing_pot")
	}
	if len(parts) == 0 {
		return ""
	}
	return "youtube:" + strings.Join(parts, ";")
}

// collectOutput locates the downloaded media file and its metadata sidecar.
func collectOutput(destDir string) (RawMedia, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return RawMedia{}, fmt.Errorf("inspect download output: %w", err)
	}

	var media RawMedia
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, outputStem+".") {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".info.json"):
			continue
		case strings.HasSuffix(name, ".part"), strings.HasSuffix(name, ".ytdl"):
			continue
		default:
			media.Path = filepath.Join(destDir, name)
		}
	}
	if media.Path == "" {
		return RawMedia{}, errors.New("yt-dlp produced no output file")
	}

	infoPath := filepath.Join(destDir, outputStem+".info.json")
	if payload, err := os.ReadFile(infoPath); err == nil {
		var info struct {
			Title    string  `json:"title"`
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(payload, &info); err == nil {
			media.Title = strings.TrimSpace(info.Title)
			media.DurationSeconds = info.Duration
		}
	}
	return media, nil
}

// parseProgress extracts percentages from yt-dlp "[download]  42.1% of ..."
// lines emitted under --newline.
func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return ProgressUpdate{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{Percent: percent, Message: rest}, true
}

// outputTail retains the last few output lines for error reporting.
type outputTail struct {
	mu    sync.Mutex
	lines []string
}

const tailSize = 8

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailSize {
		t.lines = t.lines[len(t.lines)-tailSize:]
	}
}

func (t *outputTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, dir string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
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
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Fetcher = (*Client)(nil)
