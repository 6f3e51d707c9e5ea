// Package deps verifies the external tools the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"tunefetch/internal/config"
	"tunefetch/internal/services"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external binaries for the given configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.YtdlpBinary(), Description: "Media acquisition"},
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Audio extraction"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Duration probing"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns an error naming every required binary that is not
// available, or nil when the pipeline can run.
func MissingRequired(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "deps", "",
		fmt.Sprintf("missing required tools: %s", strings.Join(missing, ", ")), nil)
}
