package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelegram()
	c.normalizeStrategies()
	c.normalizeAcquisition()
	c.normalizeDelivery()
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		c.Telegram.BotToken = firstEnv("TUNEFETCH_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	}
	c.Telegram.APIID = strings.TrimSpace(c.Telegram.APIID)
	if c.Telegram.APIID == "" {
		c.Telegram.APIID = firstEnv("TUNEFETCH_API_ID", "API_ID")
	}
	c.Telegram.APIHash = strings.TrimSpace(c.Telegram.APIHash)
	if c.Telegram.APIHash == "" {
		c.Telegram.APIHash = firstEnv("TUNEFETCH_API_HASH", "API_HASH")
	}
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultAPIBaseURL
	}
	c.Telegram.LocalAPIURL = strings.TrimRight(strings.TrimSpace(c.Telegram.LocalAPIURL), "/")
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeStrategies() {
	if len(c.Strategies) == 0 {
		c.Strategies = DefaultStrategies()
	}
	for i := range c.Strategies {
		s := &c.Strategies[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			s.Name = fmt.Sprintf("strategy-%d", i+1)
		}
		s.CookieSource = strings.TrimSpace(s.CookieSource)
		if strings.EqualFold(s.CookieSource, "none") {
			s.CookieSource = ""
		}
	}
}

func (c *Config) normalizeAcquisition() {
	if c.Acquisition.AttemptTimeout <= 0 {
		c.Acquisition.AttemptTimeout = defaultAttemptTimeout
	}
	c.Acquisition.UserAgent = strings.TrimSpace(c.Acquisition.UserAgent)
	if c.Acquisition.UserAgent == "" {
		c.Acquisition.UserAgent = defaultUserAgent
	}
	if c.Transcode.BitrateKbps <= 0 {
		c.Transcode.BitrateKbps = defaultBitrateKbps
	}
}

func (c *Config) normalizeDelivery() {
	if c.Delivery.SizeThresholdMiB <= 0 {
		c.Delivery.SizeThresholdMiB = defaultSizeThresholdMiB
	}
	if c.Delivery.ProgressInterval <= 0 {
		c.Delivery.ProgressInterval = defaultProgressInterval
	}
	if c.Delivery.ProgressPercentStep <= 0 {
		c.Delivery.ProgressPercentStep = defaultProgressPercentStep
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("TUNEFETCH_NTFY_TOPIC"))
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxConcurrentJobs <= 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
