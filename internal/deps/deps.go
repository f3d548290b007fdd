package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external converter the pipeline relies on.
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
	// Path is the resolved location of Command when Available.
	Path   string
	Detail string
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands containing a path separator are checked in place; bare names are
// resolved through PATH.
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
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := resolve(cmd)
		if err != nil {
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// Missing returns the required entries that are unavailable. Optional
// dependencies never count as missing.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, status)
	}
	return missing
}

// Commands lists the command names of the given statuses, in order.
func Commands(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, status.Command)
	}
	return out
}

func resolve(cmd string) (string, error) {
	if !strings.ContainsRune(cmd, filepath.Separator) {
		path, err := exec.LookPath(cmd)
		if err != nil {
			return "", fmt.Errorf("binary %q not found", cmd)
		}
		return path, nil
	}
	info, err := os.Stat(cmd)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", cmd)
	}
	if !isExecutable(info) {
		return "", fmt.Errorf("binary %q is not executable", cmd)
	}
	return cmd, nil
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
