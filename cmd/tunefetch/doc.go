// Command tunefetch runs the Telegram audio fetch bot and its supporting
// utilities: configuration management, strategy inspection, and notification
// checks.
package main
