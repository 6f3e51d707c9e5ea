// Package workflow coordinates the job pipeline: admission control, the
// acquire/transcode/deliver stage sequence, chat feedback, and guaranteed
// workspace cleanup on every exit path.
package workflow
