// Package acquire drives the ordered strategy table against the download
// primitive: strategies are attempted strictly in order with a bounded
// per-attempt timeout, the first success wins, and total exhaustion reports
// every per-strategy cause in attempt order.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tunefetch/internal/logging"
	"tunefetch/internal/services"
	"tunefetch/internal/services/ytdlp"
	"tunefetch/internal/strategy"
)

// FailureKind classifies a failed attempt.
type FailureKind string

const (
	// FailureTransient covers network trouble, timeouts, and rate limits.
	FailureTransient FailureKind = "transient"
	// FailurePermanent covers content restrictions tied to the source:
	// region blocks, private or removed videos. Later strategies are still
	// attempted because a different client profile may see a different
	// restriction outcome.
	FailurePermanent FailureKind = "permanent"
)

// AttemptFailure records why one strategy failed.
type AttemptFailure struct {
	Strategy strategy.Strategy
	Kind     FailureKind
	Err      error
}

// ExhaustedError reports that every eligible strategy failed, with the
// ordered per-strategy cause list.
type ExhaustedError struct {
	Causes []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for _, cause := range e.Causes {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", cause.Strategy.Name, cause.Kind, cause.Err))
	}
	return fmt.Sprintf("all %d strategies failed: %s", len(e.Causes), strings.Join(parts, "; "))
}

// NoEligibleStrategyError reports that the eligible strategy set was empty
// before any attempt was made. This is a configuration gap, distinct from
// "all attempted and failed".
type NoEligibleStrategyError struct {
	Skipped []strategy.Skip
}

func (e *NoEligibleStrategyError) Error() string {
	if len(e.Skipped) == 0 {
		return "no acquisition strategies configured"
	}
	parts := make([]string, 0, len(e.Skipped))
	for _, skip := range e.Skipped {
		parts = append(parts, fmt.Sprintf("%s: %s", skip.Strategy.Name, skip.Reason))
	}
	return "no eligible acquisition strategy: " + strings.Join(parts, "; ")
}

// Engine coordinates strategy attempts.
type Engine struct {
	fetcher ytdlp.Fetcher
	table   strategy.Table
	prober  strategy.AuthProber
	logger  *slog.Logger
}

// NewEngine constructs an acquisition engine.
func NewEngine(fetcher ytdlp.Fetcher, table strategy.Table, prober strategy.AuthProber, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		table:   table,
		prober:  prober,
		logger:  logging.WithComponent(logger, "acquire"),
	}
}

// Acquire attempts eligible strategies in ascending order inside destDir and
// returns the first successful raw media handle. Each attempt runs in its
// own subdirectory so partial output from a failed attempt cannot leak into
// the next one.
func (e *Engine) Acquire(ctx context.Context, sourceURL, destDir string, progress func(ytdlp.ProgressUpdate)) (ytdlp.RawMedia, error) {
	logger := logging.WithContext(ctx, e.logger)

	eligible, skipped := e.table.Eligible(e.prober)
	for _, skip := range skipped {
		logger.Info("strategy skipped",
			logging.String(logging.FieldStrategy, skip.Strategy.Name),
			logging.String("reason", skip.Reason),
		)
	}
	if len(eligible) == 0 {
		return ytdlp.RawMedia{}, &NoEligibleStrategyError{Skipped: skipped}
	}

	sampler := logging.NewProgressSampler(10)

	var causes []AttemptFailure
	for _, strat := range eligible {
		if err := ctx.Err(); err != nil {
			return ytdlp.RawMedia{}, err
		}

		attemptDir := filepath.Join(destDir, fmt.Sprintf("attempt-%d", strat.Order))
		if err := os.MkdirAll(attemptDir, 0o700); err != nil {
			return ytdlp.RawMedia{}, fmt.Errorf("create attempt directory: %w", err)
		}

		logger.Info("attempting strategy",
			logging.String(logging.FieldStrategy, strat.Name),
			logging.Int("order", strat.Order),
		)

		onProgress := func(update ytdlp.ProgressUpdate) {
			if sampler.ShouldLog(update.Percent, strat.Name) {
				logger.Debug("download progress",
					logging.String(logging.FieldStrategy, strat.Name),
					logging.Float64("percent", update.Percent),
				)
			}
			if progress != nil {
				progress(update)
			}
		}

		media, err := e.fetcher.Fetch(ctx, sourceURL, attemptDir, strat, onProgress)
		if err == nil {
			logger.Info("acquisition succeeded",
				logging.String(logging.FieldStrategy, strat.Name),
				logging.String("media_path", media.Path),
			)
			return media, nil
		}
		if ctx.Err() != nil {
			return ytdlp.RawMedia{}, ctx.Err()
		}

		kind := Classify(err)
		causes = append(causes, AttemptFailure{Strategy: strat, Kind: kind, Err: err})
		logger.Warn("strategy failed",
			logging.String(logging.FieldStrategy, strat.Name),
			logging.String("failure_kind", string(kind)),
			logging.Error(err),
		)
	}

	return ytdlp.RawMedia{}, &ExhaustedError{Causes: causes}
}

// Classify sorts an attempt failure into transient or permanent. Permanent
// failures are restrictions on the content itself; everything else is
// assumed transient. Errors tagged with a services marker are classified by
// the marker before any message matching.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureTransient
	}
	if errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrTransient) {
		return FailureTransient
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"private video",
		"video unavailable",
		"has been removed",
		"blocked in your country",
		"available in your country",
		"region",
		"copyright",
		"account associated with this video has been terminated",
	} {
		if strings.Contains(msg, marker) {
			return FailurePermanent
		}
	}
	return FailureTransient
}
