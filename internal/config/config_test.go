package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunefetch/internal/config"
	"tunefetch/internal/services"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to be reported as absent")
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Fatalf("bot token overlay: got %q", cfg.Telegram.BotToken)
	}
	if len(cfg.Strategies) != 2 {
		t.Fatalf("expected stock strategy table, got %d entries", len(cfg.Strategies))
	}
	if cfg.Delivery.SizeThresholdMiB != 50 {
		t.Fatalf("default threshold: got %d", cfg.Delivery.SizeThresholdMiB)
	}
	if cfg.SizeThresholdBytes() != 50*1024*1024 {
		t.Fatalf("threshold bytes: got %d", cfg.SizeThresholdBytes())
	}
}

func TestLoadRejectsMissingBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TUNEFETCH_BOT_TOKEN", "")
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing bot token")
	}
	if !strings.Contains(err.Error(), "bot_token") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker: %v", err)
	}
}

func TestLoadParsesStrategyTable(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[[strategies]]
name = "cookies-first"
client_profiles = ["tv"]
cookie_source = "firefox"

[[strategies]]
name = "open"
client_profiles = ["android", "web"]
missing_pot = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if len(cfg.Strategies) != 2 {
		t.Fatalf("strategies: got %d", len(cfg.Strategies))
	}
	if cfg.Strategies[0].Name != "cookies-first" || cfg.Strategies[0].CookieSource != "firefox" {
		t.Fatalf("first strategy mismatch: %+v", cfg.Strategies[0])
	}
	if !cfg.Strategies[1].MissingPOT {
		t.Fatal("expected missing_pot on second strategy")
	}
}

func TestValidateRejectsDuplicateStrategyNames(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Strategies = []config.Strategy{
		{Name: "dup", ClientProfiles: []string{"web"}},
		{Name: "dup", ClientProfiles: []string{"tv"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate strategy name error")
	}
}

func TestStreamedDeliveryConfigured(t *testing.T) {
	cfg := config.Default()
	if cfg.StreamedDeliveryConfigured() {
		t.Fatal("streamed delivery should be unconfigured by default")
	}
	cfg.Telegram.LocalAPIURL = "http://127.0.0.1:8081"
	cfg.Telegram.APIID = "12345"
	cfg.Telegram.APIHash = "hash"
	if !cfg.StreamedDeliveryConfigured() {
		t.Fatal("expected streamed delivery to be configured")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
