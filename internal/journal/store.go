package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dcmcanon/internal/config"
)

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Journal.Path)
}

// OpenPath opens the journal database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("journal path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Connection-scoped pragmas (foreign_keys, busy_timeout) must apply to
	// every statement; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, status, workers, toolchain, retry_of, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Root,
		RunRunning,
		run.Workers,
		strings.Join(run.Toolchain, ","),
		nullableString(run.RetryOf),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Record stores one outcome for a run. Recording the same path twice for a
// run replaces the earlier entry.
func (s *Store) Record(ctx context.Context, runID string, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, path, success, tool, reason, error_message, attempts, size_bytes, elapsed_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (run_id, path) DO UPDATE SET
             success = excluded.success, tool = excluded.tool, reason = excluded.reason,
             error_message = excluded.error_message, attempts = excluded.attempts,
             size_bytes = excluded.size_bytes, elapsed_ms = excluded.elapsed_ms,
             recorded_at = excluded.recorded_at`,
		runID,
		entry.Path,
		boolToInt(entry.Success),
		nullableString(entry.Tool),
		nullableString(entry.Reason),
		nullableString(entry.Error),
		entry.Attempts,
		entry.Size,
		entry.Elapsed.Milliseconds(),
		formatTime(entry.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final tallies and status of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, totals Totals) error {
	if totals.Status == "" {
		totals.Status = RunCompleted
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, total = ?, succeeded = ?, failed = ?, dropped_events = ?
         WHERE id = ?`,
		totals.Status,
		formatTime(time.Now()),
		totals.Total,
		totals.Succeeded,
		totals.Failed,
		totals.Dropped,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// MarkInterrupted flags runs over root still recorded as running. Call it
// while holding the root's run lock, when no live run can exist.
func (s *Store) MarkInterrupted(ctx context.Context, root string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE root = ? AND status = ?`,
		RunInterrupted,
		formatTime(time.Now()),
		root,
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run identifier or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		idOrPrefix,
		escapeLike(idOrPrefix)+"%",
		idOrPrefix,
	)
	if err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch {
	case len(matches) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case matches[0].ID == idOrPrefix || len(matches) == 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// Failures returns the failed entries of a run ordered by path.
func (s *Store) Failures(ctx context.Context, runID string) ([]Entry, error) {
	return s.entries(ctx, `WHERE run_id = ? AND success = 0`, runID)
}

// Entries returns every recorded entry of a run ordered by path.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	return s.entries(ctx, `WHERE run_id = ?`, runID)
}

func (s *Store) entries(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM outcomes `+where+` ORDER BY path`, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes runs that started before cutoff together with their outcomes.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE started_at < ? AND status != ?`,
		formatTime(cutoff),
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
