package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Pattern matches every run log file name.
const Pattern = "dcmcanon-*.log"

const idLength = 8

// ErrNoLogs is returned when no run log matches.
var ErrNoLogs = errors.New("no run logs found")

// FileName returns the log file name for a run started at start.
func FileName(start time.Time, runID string) string {
	if len(runID) > idLength {
		runID = runID[:idLength]
	}
	return fmt.Sprintf("dcmcanon-%s-%s.log", start.Format("20060102T150405"), runID)
}

// Locate returns the newest log in dir for the run whose identifier starts
// with runID. An empty runID selects the newest log of any run.
func Locate(dir, runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if len(runID) > idLength {
		runID = runID[:idLength]
	}
	matches, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, path := range matches {
		if runID != "" && !strings.HasPrefix(runSuffix(filepath.Base(path)), runID) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = path, info.ModTime()
		}
	}
	if newest == "" {
		if runID != "" {
			return "", fmt.Errorf("%w for run %s in %s", ErrNoLogs, runID, dir)
		}
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	return newest, nil
}

// runSuffix extracts the run identifier from a FileName result.
func runSuffix(name string) string {
	name = strings.TrimSuffix(name, ".log")
	if idx := strings.LastIndexByte(name, '-'); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}
