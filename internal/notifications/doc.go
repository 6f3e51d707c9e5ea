// Package notifications delivers operator alerts via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-category toggles let operators receive only errors, only
// completions, or both.
package notifications
