package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Requirement defines an external binary tonearm relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// VersionArgs, when set, are passed to the binary and the first line of
	// output is reported as its version.
	VersionArgs []string
	Optional    bool
}

// Status is the outcome of checking one Requirement. Path and Version are
// set only when the binary was found.
type Status struct {
	Requirement
	Available bool
	Path      string
	Version   string
	Detail    string
}

const versionTimeout = 5 * time.Second

// CheckBinaries looks up each requirement on PATH, in order.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	status.Path = resolved
	if len(req.VersionArgs) > 0 {
		status.Version = firstLine(ctx, resolved, req.VersionArgs)
	}
	return status
}

func firstLine(ctx context.Context, binary string, args []string) string {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(runCtx, binary, args...).Output()
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}
