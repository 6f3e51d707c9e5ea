package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"tunefetch/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Telegram contains chat surface connection settings. BotToken, APIID and
// APIHash are secrets and are normally supplied through the environment or a
// .env file rather than the config file.
type Telegram struct {
	BotToken       string `toml:"bot_token"`
	APIBaseURL     string `toml:"api_base_url"`
	LocalAPIURL    string `toml:"local_api_url"`
	APIID          string `toml:"api_id"`
	APIHash        string `toml:"api_hash"`
	PollTimeout    int    `toml:"poll_timeout"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Strategy describes one configured acquisition attempt style. Entries are
// attempted in the order they appear in the config file.
type Strategy struct {
	Name           string   `toml:"name"`
	ClientProfiles []string `toml:"client_profiles"`
	CookieSource   string   `toml:"cookie_source"`
	PlayerSkip     []string `toml:"player_skip"`
	MissingPOT     bool     `toml:"missing_pot"`
}

// Acquisition contains download engine settings.
type Acquisition struct {
	AttemptTimeout int    `toml:"attempt_timeout"`
	UserAgent      string `toml:"user_agent"`
	GeoBypass      bool   `toml:"geo_bypass"`
}

// Transcode contains audio conversion settings.
type Transcode struct {
	BitrateKbps int `toml:"bitrate_kbps"`
}

// Delivery contains channel routing and progress reporting settings.
type Delivery struct {
	SizeThresholdMiB    int `toml:"size_threshold_mib"`
	ProgressInterval    int `toml:"progress_interval"`
	ProgressPercentStep int `toml:"progress_percent_step"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
	Completions    bool   `toml:"completions"`
}

// Workflow contains job scheduling settings.
type Workflow struct {
	MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
}

// Config encapsulates all configuration values for tunefetch.
//
// Configuration sections by subsystem:
//   - Paths: staging (job workdirs) and log directories
//   - Telegram: chat surface connection and large-file upload server
//   - Strategies: ordered acquisition strategy table
//   - Acquisition: per-attempt timeout and shared network profile
//   - Transcode: target audio bitrate
//   - Delivery: size threshold and progress reporting policy
//   - Notifications: ntfy operator alerts
//   - Workflow: concurrent job limit
type Config struct {
	Paths         Paths         `toml:"paths"`
	Telegram      Telegram      `toml:"telegram"`
	Strategies    []Strategy    `toml:"strategies"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Transcode     Transcode     `toml:"transcode"`
	Delivery      Delivery      `toml:"delivery"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	LogLevel      string        `toml:"log_level"`
	LogFormat     string        `toml:"log_format"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tunefetch/config.toml")
}

// Load locates, parses, and validates a configuration file. Secrets missing
// from the file are overlaid from the environment (a .env file in the working
// directory is honored). The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	// Secrets come from the environment first; godotenv does not override
	// variables that are already set.
	_ = godotenv.Load()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tunefetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if fileutil.Exists(expanded) {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// StreamedDeliveryConfigured reports whether the large-file upload path has
// the credentials and endpoint it needs.
func (c *Config) StreamedDeliveryConfigured() bool {
	return strings.TrimSpace(c.Telegram.LocalAPIURL) != "" &&
		strings.TrimSpace(c.Telegram.APIID) != "" &&
		strings.TrimSpace(c.Telegram.APIHash) != ""
}

// SizeThresholdBytes returns the delivery routing boundary in bytes.
func (c *Config) SizeThresholdBytes() int64 {
	return int64(c.Delivery.SizeThresholdMiB) * 1024 * 1024
}

// YtdlpBinary returns the acquisition executable name.
func (c *Config) YtdlpBinary() string {
	return "yt-dlp"
}

// FFmpegBinary returns the transcoder executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the media inspection executable name.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
