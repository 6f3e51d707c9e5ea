// Package deliver routes finished artifacts to a delivery channel and pushes
// them out with throttled progress reporting.
package deliver

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Route names a delivery channel.
type Route string

const (
	// RouteDirect uploads through the hosted Bot API, which caps uploads.
	RouteDirect Route = "direct"
	// RouteStreamed uploads through a self-hosted Bot API server, which
	// lifts the hosted cap.
	RouteStreamed Route = "streamed"
)

// LargeFileUnavailableError reports an artifact that needs the streamed
// channel when no streamed channel is configured.
type LargeFileUnavailableError struct {
	SizeBytes      int64
	ThresholdBytes int64
}

func (e *LargeFileUnavailableError) Error() string {
	return fmt.Sprintf("artifact is %s, at or above the %s direct-delivery limit, and no streamed channel is configured",
		humanize.IBytes(uint64(e.SizeBytes)), humanize.IBytes(uint64(e.ThresholdBytes)))
}

// Error reports a failed delivery attempt on an otherwise routable artifact.
type Error struct {
	Route Route
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s delivery: %v", e.Route, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Router decides the channel for an artifact by size.
type Router struct {
	thresholdBytes     int64
	streamedConfigured bool
}

// NewRouter constructs a Router. thresholdBytes is the smallest size that
// requires the streamed channel.
func NewRouter(thresholdBytes int64, streamedConfigured bool) Router {
	return Router{thresholdBytes: thresholdBytes, streamedConfigured: streamedConfigured}
}

// Decide returns the channel for an artifact of sizeBytes. Sizes at or above
// the threshold require the streamed channel; when that channel is not
// configured the artifact is undeliverable and the caller gets a
// LargeFileUnavailableError.
func (r Router) Decide(sizeBytes int64) (Route, error) {
	if sizeBytes < r.thresholdBytes {
		return RouteDirect, nil
	}
	if !r.streamedConfigured {
		return "", &LargeFileUnavailableError{SizeBytes: sizeBytes, ThresholdBytes: r.thresholdBytes}
	}
	return RouteStreamed, nil
}
