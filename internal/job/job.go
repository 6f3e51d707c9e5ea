// Package job models one end-to-end request: its lifecycle states, the
// produced artifact, and the exclusively owned working directory with
// guaranteed cleanup.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a Job.
type State string

const (
	StateValidating  State = "validating"
	StateAcquiring   State = "acquiring"
	StateTranscoding State = "transcoding"
	StateRouting     State = "routing"
	StateDelivering  State = "delivering"
	StateDone        State = "done"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// forwardOrder is the only legal progression; Failed and Cancelled are
// reachable from any non-terminal state.
var forwardOrder = map[State]int{
	StateValidating:  0,
	StateAcquiring:   1,
	StateTranscoding: 2,
	StateRouting:     3,
	StateDelivering:  4,
	StateDone:        5,
}

// Terminal reports whether s permits no further transitions.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Artifact is the transcoded output of one successful acquisition.
type Artifact struct {
	Path            string
	SizeBytes       int64
	DurationSeconds float64
	Title           string
}

// Job is one user request in flight. A Job is owned by a single goroutine;
// its fields are not safe for concurrent mutation.
type Job struct {
	ID        string
	ChatID    int64
	SourceURL string
	State     State
	Artifact  *Artifact
	CreatedAt time.Time

	workspace *Workspace
}

// New creates a Job in StateValidating with a fresh workspace under root.
func New(root string, chatID int64) (*Job, error) {
	id := uuid.NewString()
	ws, err := NewWorkspace(root, id)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:        id,
		ChatID:    chatID,
		State:     StateValidating,
		CreatedAt: time.Now().UTC(),
		workspace: ws,
	}, nil
}

// WorkDir returns the job's exclusively owned working directory.
func (j *Job) WorkDir() string {
	return j.workspace.Dir()
}

// Advance moves the job forward to next. Transitions must be strictly
// forward; Done additionally requires an artifact.
func (j *Job) Advance(next State) error {
	if j.State.Terminal() {
		return fmt.Errorf("job %s is terminal in state %s", j.ID, j.State)
	}
	nextPos, ok := forwardOrder[next]
	if !ok {
		return fmt.Errorf("cannot advance to %s", next)
	}
	currentPos, ok := forwardOrder[j.State]
	if !ok || nextPos <= currentPos {
		return fmt.Errorf("illegal transition %s -> %s", j.State, next)
	}
	if next == StateDone && j.Artifact == nil {
		return errors.New("cannot complete a job without an artifact")
	}
	j.State = next
	return nil
}

// Fail marks the job failed. Failed is terminal and reachable from any
// non-terminal state.
func (j *Job) Fail() {
	if !j.State.Terminal() {
		j.State = StateFailed
	}
}

// Cancel marks the job cancelled. Cancelled is terminal and reachable from
// any non-terminal state.
func (j *Job) Cancel() {
	if !j.State.Terminal() {
		j.State = StateCancelled
	}
}

// Cleanup releases the workspace. Safe to call multiple times; only the
// first call removes anything.
func (j *Job) Cleanup() error {
	return j.workspace.Cleanup()
}
