// Package logging provides slog construction and shared structured-field
// conventions. The console handler renders compact single-line records with
// the component attribute promoted to a prefix; the JSON handler emits
// machine-readable records for log shipping.
package logging
