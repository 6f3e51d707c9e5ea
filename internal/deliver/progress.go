package deliver

import (
	"sync"
	"time"
)

// Reporter throttles progress updates for the chat surface. Emission needs
// both an elapsed interval and a minimum percent advance, percent values
// only ever move forward, and completion is reported exactly once. After
// Close nothing is emitted again.
type Reporter struct {
	mu          sync.Mutex
	interval    time.Duration
	stepPercent float64
	emit        func(percent float64, detail string)
	now         func() time.Time

	lastEmit    time.Time
	lastPercent float64
	started     bool
	finished    bool
	closed      bool
}

// NewReporter constructs a Reporter that forwards throttled updates to emit.
func NewReporter(interval time.Duration, stepPercent int, emit func(percent float64, detail string)) *Reporter {
	if stepPercent <= 0 {
		stepPercent = 1
	}
	return &Reporter{
		interval:    interval,
		stepPercent: float64(stepPercent),
		emit:        emit,
		now:         time.Now,
	}
}

// Update offers a progress observation. percent is clamped to [0, 100); use
// Finish for completion so 100% is emitted exactly once.
func (r *Reporter) Update(percent float64, detail string) {
	if percent < 0 {
		percent = 0
	}
	if percent >= 100 {
		percent = 99.9
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.finished {
		return
	}
	if r.started {
		if percent < r.lastPercent+r.stepPercent {
			return
		}
		if r.now().Sub(r.lastEmit) < r.interval {
			return
		}
	}
	r.started = true
	r.lastEmit = r.now()
	r.lastPercent = percent
	r.emit(percent, detail)
}

// Finish reports completion. Only the first call emits; the interval and
// step gates do not apply.
func (r *Reporter) Finish(detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.finished {
		return
	}
	r.finished = true
	r.lastPercent = 100
	r.emit(100, detail)
}

// Close silences the reporter. Used on cancellation and failure so no
// progress text lands after the terminal message.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
