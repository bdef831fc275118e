package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/0x6d61/xssleech/internal/engine"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		inputs       TEXT NOT NULL DEFAULT '',
		config_json  TEXT NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL,
		pages        INTEGER NOT NULL DEFAULT 0,
		vulnerable   INTEGER NOT NULL DEFAULT 0,
		errors       INTEGER NOT NULL DEFAULT 0,
		started_at   TEXT NOT NULL,
		finished_at  TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS findings (
		id        TEXT PRIMARY KEY,
		run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq       INTEGER NOT NULL,
		url       TEXT NOT NULL,
		payload   TEXT NOT NULL,
		page      TEXT NOT NULL DEFAULT '',
		method    TEXT NOT NULL DEFAULT '',
		target    TEXT NOT NULL DEFAULT '',
		evidence  TEXT NOT NULL DEFAULT '',
		found_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_findings_run_id ON findings(run_id, seq);
`

// NewSQLiteStore creates a new SQLite-backed store.
// dbPath is the path to the SQLite database file; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	// A single connection serialises concurrent writers and keeps an
	// in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// BeginRun inserts run. If its ID is empty a new UUID is assigned; a zero
// StartedAt is set to now.
func (s *SQLiteStore) BeginRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning

	cfg := run.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("session: marshal config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, inputs, config_json, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Inputs, string(configJSON), run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("session: begin run: %w", err)
	}
	return nil
}

// RecordFinding appends f to the run's findings.
func (s *SQLiteStore) RecordFinding(ctx context.Context, runID string, f engine.Finding) error {
	foundAt := f.FoundAt
	if foundAt.IsZero() {
		foundAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO findings (id, run_id, seq, url, payload, page, method, target, evidence, found_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM findings WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, runID,
		f.URL, f.Payload, f.Page, f.Method, f.Target, f.Evidence, formatTime(foundAt),
	)
	if err != nil {
		return fmt.Errorf("session: record finding: %w", err)
	}
	return nil
}

// FinishRun stores the final status and totals of runID.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status string, totals engine.Counters) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, pages = ?, vulnerable = ?, errors = ?, finished_at = ?
		WHERE id = ?`,
		status, totals.Pages, totals.Vulnerable, totals.Errors, formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("session: finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session: finish run: no run with id %q", runID)
	}
	return nil
}

// LoadRun retrieves a run by its ID, including its config snapshot.
// Returns (nil, nil) if no run is found.
func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, inputs, config_json, status, pages, vulnerable, errors, started_at, finished_at
		FROM runs WHERE id = ?`, id)

	var (
		run        Run
		configJSON string
	)
	started, finished, err := scanRun(row, &run, &configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("session: unmarshal config: %w", err)
	}
	if err := setTimes(&run, started, finished); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inputs, '', status, pages, vulnerable, errors, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("session: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run    Run
			ignore string
		)
		started, finished, err := scanRun(rows, &run, &ignore)
		if err != nil {
			return nil, fmt.Errorf("session: scan run row: %w", err)
		}
		if err := setTimes(&run, started, finished); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate rows: %w", err)
	}
	return runs, nil
}

// Findings returns the findings of runID in recording order.
func (s *SQLiteStore) Findings(ctx context.Context, runID string) ([]engine.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, payload, page, method, target, evidence, found_at
		FROM findings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("session: list findings: %w", err)
	}
	defer rows.Close()

	var findings []engine.Finding
	for rows.Next() {
		var (
			f       engine.Finding
			foundAt string
		)
		if err := rows.Scan(&f.URL, &f.Payload, &f.Page, &f.Method, &f.Target, &f.Evidence, &foundAt); err != nil {
			return nil, fmt.Errorf("session: scan finding row: %w", err)
		}
		if f.FoundAt, err = parseTime(foundAt); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate rows: %w", err)
	}
	return findings, nil
}

// Delete removes a run and its findings.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("session: delete run: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Cleanup removes runs started more than maxAge ago, with their findings.
// It returns the number of deleted runs.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-maxAge))

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: cleanup runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: rows affected: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, run *Run, configJSON *string) (started, finished string, err error) {
	err = row.Scan(&run.ID, &run.Inputs, configJSON, &run.Status,
		&run.Pages, &run.Vulnerable, &run.Errors, &started, &finished)
	return started, finished, err
}

func setTimes(run *Run, started, finished string) error {
	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return err
	}
	if finished != "" {
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("session: parse time %q: %w", s, err)
	}
	return t, nil
}
