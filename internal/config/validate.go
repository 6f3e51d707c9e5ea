package config

import (
	"errors"
	"fmt"
	"strings"

	"tunefetch/internal/services"
)

// Validate ensures the configuration is usable. Failures carry the
// services.ErrConfiguration marker.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateTelegram,
		c.validateStrategies,
		c.validateDelivery,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "", "", err)
		}
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tunefetch/config.toml"
		}
		return fmt.Errorf("telegram.bot_token is required. Set TELEGRAM_BOT_TOKEN (optionally in a .env file) or edit %s (create with 'tunefetch config init')", defaultPath)
	}
	if c.Telegram.LocalAPIURL != "" && !strings.HasPrefix(c.Telegram.LocalAPIURL, "http") {
		return errors.New("telegram.local_api_url must be an http(s) URL")
	}
	return nil
}

func (c *Config) validateStrategies() error {
	seen := make(map[string]struct{}, len(c.Strategies))
	for i, s := range c.Strategies {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("strategies[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
		if len(s.ClientProfiles) == 0 {
			return fmt.Errorf("strategies[%d] (%s): client_profiles must not be empty", i, s.Name)
		}
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if c.Delivery.SizeThresholdMiB > 2000 {
		return errors.New("delivery.size_threshold_mib exceeds the 2000 MiB protocol ceiling")
	}
	if c.Delivery.ProgressPercentStep > 100 {
		return errors.New("delivery.progress_percent_step must be at most 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}
	return nil
}
