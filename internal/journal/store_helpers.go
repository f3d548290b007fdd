package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, root, status, workers, toolchain, retry_of, started_at, finished_at, total, succeeded, failed, dropped_events"

const entryColumns = "path, success, tool, reason, error_message, attempts, size_bytes, elapsed_ms, recorded_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		status      string
		toolchain   string
		retryOf     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Root,
		&status,
		&run.Workers,
		&toolchain,
		&retryOf,
		&startedRaw,
		&finishedRaw,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.Dropped,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if toolchain != "" {
		run.Toolchain = strings.Split(toolchain, ",")
	}
	run.RetryOf = retryOf.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry       Entry
		success     int
		tool        sql.NullString
		reason      sql.NullString
		message     sql.NullString
		size        sql.NullInt64
		elapsedMS   int64
		recordedRaw string
	)
	if err := scanner.Scan(
		&entry.Path,
		&success,
		&tool,
		&reason,
		&message,
		&entry.Attempts,
		&size,
		&elapsedMS,
		&recordedRaw,
	); err != nil {
		return Entry{}, fmt.Errorf("scan outcome: %w", err)
	}
	entry.Success = success != 0
	entry.Tool = tool.String
	entry.Reason = reason.String
	entry.Error = message.String
	entry.Size = size.Int64
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	entry.RecordedAt = parseTime(recordedRaw)
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
