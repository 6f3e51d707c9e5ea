package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tunefetch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Telegram.BotToken = "12345:test-token"
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBotToken sets the chat surface token on the test config.
func WithBotToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.BotToken = token
	}
}

// WithStreamedDelivery configures a self-hosted Bot API endpoint and the
// credentials the streamed channel needs.
func WithStreamedDelivery(localAPIURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.LocalAPIURL = localAPIURL
		b.cfg.Telegram.APIID = "11111"
		b.cfg.Telegram.APIHash = "test-hash"
	}
}

// WithStrategies replaces the acquisition strategy table on the test config.
func WithStrategies(strategies ...config.Strategy) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Strategies = strategies
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default tunefetch external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
