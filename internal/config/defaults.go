package config

const (
	defaultStagingDir          = "~/.local/share/tunefetch/staging"
	defaultLogDir              = "~/.local/share/tunefetch/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultAPIBaseURL          = "https://api.telegram.org"
	defaultPollTimeout         = 50
	defaultRequestTimeout      = 180
	defaultAttemptTimeout      = 600
	defaultBitrateKbps         = 192
	defaultSizeThresholdMiB    = 50
	defaultProgressInterval    = 3
	defaultProgressPercentStep = 10
	defaultMaxConcurrentJobs   = 3
	defaultNtfyRequestTimeout  = 10

	// Matches the desktop profile the acquisition strategies present by default.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Telegram: Telegram{
			APIBaseURL:     defaultAPIBaseURL,
			PollTimeout:    defaultPollTimeout,
			RequestTimeout: defaultRequestTimeout,
		},
		Strategies: DefaultStrategies(),
		Acquisition: Acquisition{
			AttemptTimeout: defaultAttemptTimeout,
			UserAgent:      defaultUserAgent,
			GeoBypass:      true,
		},
		Transcode: Transcode{
			BitrateKbps: defaultBitrateKbps,
		},
		Delivery: Delivery{
			SizeThresholdMiB:    defaultSizeThresholdMiB,
			ProgressInterval:    defaultProgressInterval,
			ProgressPercentStep: defaultProgressPercentStep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Errors:         true,
			Completions:    false,
		},
		Workflow: Workflow{
			MaxConcurrentJobs: defaultMaxConcurrentJobs,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// DefaultStrategies returns the stock acquisition strategy table: browser
// cookies with the TV player client first, then a cookie-less fallback.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:           "firefox-cookies-tv-client",
			ClientProfiles: []string{"tv", "web"},
			CookieSource:   "firefox",
		},
		{
			Name:           "basic-fallback",
			ClientProfiles: []string{"android", "web"},
			PlayerSkip:     []string{"webpage"},
			MissingPOT:     true,
		},
	}
}
