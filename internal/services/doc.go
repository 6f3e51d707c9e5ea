// Package services holds cross-cutting glue shared by pipeline components:
// error classification markers, wrapping helpers, and context annotation for
// log enrichment. External tool clients live in subpackages (ytdlp, ffmpeg,
// telegram).
package services
