package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a per-job temporary directory paired with its guaranteed
// removal. Creation and destruction live in one object so every exit path
// releases the same scope, and repeated Cleanup calls are harmless.
type Workspace struct {
	dir  string
	once sync.Once
	err  error
}

// NewWorkspace creates an exclusively owned directory root/id.
func NewWorkspace(root, id string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	dir := filepath.Join(root, id)
	// Mkdir, not MkdirAll: the job id must be unique, a collision is a bug.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Cleanup removes the workspace and everything in it exactly once.
func (w *Workspace) Cleanup() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.dir)
	})
	return w.err
}
