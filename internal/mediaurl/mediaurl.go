// Package mediaurl validates and canonicalizes source video URLs.
//
// The recognized surface forms are the long form (youtube.com/watch?v=ID),
// the short form (youtu.be/ID), the shorts form (youtube.com/shorts/ID), and
// the embed form, with or without scheme and www/m/music host prefixes. All
// of them canonicalize to a single identifier, so equivalent inputs map to
// the same Source.
package mediaurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL reports an input that matches no recognized source shape.
var ErrInvalidURL = errors.New("invalid media url")

const maxVideoIDLength = 64

// Source is a canonical validated source identifier.
type Source struct {
	ID           string
	CanonicalURL string
}

// Canonicalize parses raw into a Source or fails with ErrInvalidURL.
// It is deterministic, side-effect free, and idempotent: canonicalizing the
// CanonicalURL of a Source yields the same Source.
func Canonicalize(raw string) (Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Source{}, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}

	var id string
	switch host {
	case "youtube.com":
		id = idFromYouTubePath(parsed)
	case "youtu.be":
		id = strings.Trim(parsed.EscapedPath(), "/")
	default:
		return Source{}, fmt.Errorf("%w: unrecognized host %q", ErrInvalidURL, parsed.Hostname())
	}

	if !validVideoID(id) {
		return Source{}, fmt.Errorf("%w: no video identifier in %q", ErrInvalidURL, raw)
	}

	return Source{
		ID:           id,
		CanonicalURL: "https://www.youtube.com/watch?v=" + id,
	}, nil
}

func idFromYouTubePath(parsed *url.URL) string {
	path := strings.Trim(parsed.EscapedPath(), "/")
	switch {
	case path == "watch":
		return parsed.Query().Get("v")
	case strings.HasPrefix(path, "shorts/"):
		return strings.TrimPrefix(path, "shorts/")
	case strings.HasPrefix(path, "embed/"):
		return strings.TrimPrefix(path, "embed/")
	default:
		return ""
	}
}

func validVideoID(id string) bool {
	if id == "" || len(id) > maxVideoIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
