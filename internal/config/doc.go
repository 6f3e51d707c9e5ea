// Package config loads, normalizes, and validates tunefetch configuration.
//
// Configuration is a TOML file with environment overlays for secrets: the
// bot token and large-file API credentials are read from TELEGRAM_BOT_TOKEN,
// API_ID, and API_HASH (or their TUNEFETCH_-prefixed variants), with a .env
// file honored for local development. Defaults mirror the stock strategy
// table so the daemon runs usefully with nothing but a bot token.
package config
