// Package ytdlp wraps the yt-dlp command line downloader. Each Fetch call is
// one acquisition attempt shaped by a strategy: player clients, cookie
// source, and extractor shortcuts become CLI flags, download progress is
// parsed from --newline output, and metadata is read from the info.json
// sidecar.
package ytdlp
