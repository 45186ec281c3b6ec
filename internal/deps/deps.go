package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"vimeodl/internal/services"
)

// probeTimeout bounds a single version probe.
const probeTimeout = 10 * time.Second

// Requirement defines an external binary vimeodl relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are run to confirm the binary actually starts.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// CheckBinaries evaluates the provided requirements with PATH lookups only.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, lookup(req))
	}
	return results
}

// Probe evaluates requirements and runs the version command of every binary
// found on PATH. A binary that resolves but fails its probe is unavailable.
func Probe(ctx context.Context, run services.CommandRunner, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := lookup(req)
		if status.Available && len(req.VersionArgs) > 0 {
			out, err := services.RunTool(ctx, run, probeTimeout, req.Name, status.Command, req.VersionArgs...)
			if err != nil {
				status.Available = false
				status.Detail = fmt.Sprintf("version probe failed: %v", err)
			} else {
				status.Version = firstLine(string(out))
			}
		}
		results = append(results, status)
	}
	return results
}

func lookup(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
