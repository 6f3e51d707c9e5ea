package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tunefetch/internal/acquire"
	"tunefetch/internal/deliver"
	"tunefetch/internal/job"
	"tunefetch/internal/logging"
	"tunefetch/internal/mediaurl"
	"tunefetch/internal/notifications"
	"tunefetch/internal/services"
	"tunefetch/internal/services/ytdlp"
)

// Acquirer runs the ordered strategy attempts for one source.
type Acquirer interface {
	Acquire(ctx context.Context, sourceURL, destDir string, progress func(ytdlp.ProgressUpdate)) (ytdlp.RawMedia, error)
}

// Transcoder converts raw media into the delivery artifact.
type Transcoder interface {
	Transcode(ctx context.Context, media ytdlp.RawMedia, destDir string) (*job.Artifact, error)
}

// Deliverer routes and uploads a finished artifact.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, artifact *job.Artifact, sourceURL string, onProgress func(text string)) (deliver.Route, error)
}

// Feedback is the per-job chat surface. The workflow never talks to the
// chat transport directly; the caller supplies one Feedback per submission.
// All methods are called from the job's goroutine.
type Feedback interface {
	// Queued signals that the job is waiting for a worker slot.
	Queued(ctx context.Context)
	// Status replaces the visible progress line.
	Status(ctx context.Context, text string)
	// Done signals successful delivery over the given route.
	Done(ctx context.Context, route deliver.Route)
	// Failed reports the user-facing failure text.
	Failed(ctx context.Context, userText string)
}

// Options tunes the manager.
type Options struct {
	StagingDir          string
	MaxConcurrentJobs   int
	ProgressInterval    time.Duration
	ProgressPercentStep int
}

// Manager owns job admission and execution. One Manager serves the whole
// process; jobs run on their own goroutines gated by a fixed slot pool.
type Manager struct {
	acquirer   Acquirer
	transcoder Transcoder
	deliverer  Deliverer
	notifier   notifications.Service
	opts       Options
	logger     *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewManager constructs a Manager.
func NewManager(acquirer Acquirer, transcoder Transcoder, deliverer Deliverer, notifier notifications.Service, opts Options, logger *slog.Logger) (*Manager, error) {
	if acquirer == nil || transcoder == nil || deliverer == nil {
		return nil, errors.New("acquirer, transcoder and deliverer required")
	}
	if opts.StagingDir == "" {
		return nil, errors.New("staging directory required")
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = 1
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	return &Manager{
		acquirer:   acquirer,
		transcoder: transcoder,
		deliverer:  deliverer,
		notifier:   notifier,
		opts:       opts,
		logger:     logging.WithComponent(logger, "workflow"),
		slots:      make(chan struct{}, opts.MaxConcurrentJobs),
	}, nil
}

// Submit validates the link, creates the job, and schedules it. Validation
// failures are returned synchronously so the caller can answer immediately;
// everything after that is reported through fb.
func (m *Manager) Submit(ctx context.Context, chatID int64, rawURL string, fb Feedback) (string, error) {
	source, err := mediaurl.Canonicalize(rawURL)
	if err != nil {
		return "", err
	}

	j, err := job.New(m.opts.StagingDir, chatID)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	j.SourceURL = source.CanonicalURL

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, j, fb)
	}()
	return j.ID, nil
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, j *job.Job, fb Feedback) {
	defer func() {
		if err := j.Cleanup(); err != nil {
			m.logger.Warn("workspace cleanup failed",
				logging.String(logging.FieldJobID, j.ID),
				logging.Error(err),
			)
		}
	}()

	ctx = services.WithJobID(ctx, j.ID)
	ctx = services.WithChatID(ctx, j.ChatID)
	logger := m.logger.With(
		logging.String(logging.FieldJobID, j.ID),
		logging.Int64(logging.FieldChatID, j.ChatID),
	)

	// Admission: take a slot, telling the user when they have to wait.
	select {
	case m.slots <- struct{}{}:
	default:
		fb.Queued(ctx)
		logger.Info("job queued, all worker slots busy")
		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			j.Cancel()
			// Terminal feedback must outlive the cancelled job context or
			// the user never sees the notice.
			fb.Failed(context.WithoutCancel(ctx), msgCancelled)
			return
		}
	}
	defer func() { <-m.slots }()

	logger.Info("job started", logging.String("source_url", j.SourceURL))
	start := time.Now()

	route, err := m.execute(ctx, j, fb, logger)
	switch {
	case err == nil:
		logger.Info("job completed",
			logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
			logging.String("title", j.Artifact.Title),
			logging.String("route", string(route)),
		)
		fb.Done(ctx, route)
	case services.IsCancellation(err):
		j.Cancel()
		logger.Info("job cancelled", logging.String(logging.FieldStage, string(j.State)))
		fb.Failed(context.WithoutCancel(ctx), msgCancelled)
	default:
		failedStage := j.State
		j.Fail()
		logger.Error("job failed",
			logging.String(logging.FieldStage, string(failedStage)),
			logging.Error(err),
		)
		fb.Failed(ctx, UserMessage(err))
		m.notifyFailure(ctx, err, string(failedStage))
	}
}

// execute walks the job through its stages. The returned error is the
// stage's typed failure; state bookkeeping happens here so the caller only
// has to map the outcome.
func (m *Manager) execute(ctx context.Context, j *job.Job, fb Feedback, logger *slog.Logger) (deliver.Route, error) {
	if err := j.Advance(job.StateAcquiring); err != nil {
		return "", err
	}
	fb.Status(ctx, "Downloading...")
	downloadProgress := deliver.NewReporter(m.opts.ProgressInterval, m.opts.ProgressPercentStep, func(percent float64, _ string) {
		fb.Status(ctx, fmt.Sprintf("Downloading: %.0f%%", percent))
	})
	media, err := m.acquirer.Acquire(services.WithStage(ctx, string(job.StateAcquiring)), j.SourceURL, j.WorkDir(), func(update ytdlp.ProgressUpdate) {
		downloadProgress.Update(update.Percent, update.Message)
	})
	downloadProgress.Close()
	if err != nil {
		return "", err
	}

	if err := j.Advance(job.StateTranscoding); err != nil {
		return "", err
	}
	fb.Status(ctx, "Converting to audio...")
	artifact, err := m.transcoder.Transcode(services.WithStage(ctx, string(job.StateTranscoding)), media, j.WorkDir())
	if err != nil {
		return "", err
	}
	j.Artifact = artifact

	if err := j.Advance(job.StateRouting); err != nil {
		return "", err
	}
	if err := j.Advance(job.StateDelivering); err != nil {
		return "", err
	}
	fb.Status(ctx, "Sending...")
	route, err := m.deliverer.Deliver(services.WithStage(ctx, string(job.StateDelivering)), j.ChatID, artifact, j.SourceURL, func(text string) {
		fb.Status(ctx, text)
	})
	if err != nil {
		return route, err
	}

	if err := j.Advance(job.StateDone); err != nil {
		return route, err
	}
	if nerr := m.notifier.NotifyJobCompleted(ctx, artifact.Title, string(route)); nerr != nil {
		logger.Warn("completion notification failed", logging.Error(nerr))
	}
	return route, nil
}

func (m *Manager) notifyFailure(ctx context.Context, err error, stage string) {
	// Notification context must survive job cancellation.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var noEligible *acquire.NoEligibleStrategyError
	if errors.As(err, &noEligible) {
		if nerr := m.notifier.NotifyConfigurationGap(notifyCtx, err.Error()); nerr != nil {
			m.logger.Warn("configuration gap notification failed", logging.Error(nerr))
		}
		return
	}
	if nerr := m.notifier.NotifyJobFailed(notifyCtx, err, stage); nerr != nil {
		m.logger.Warn("failure notification failed", logging.Error(nerr))
	}
}
