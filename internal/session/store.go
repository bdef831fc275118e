// Package session archives scan runs and their findings so results can be
// reviewed after the process exits. Crawl state itself is never stored.
package session

import (
	"context"
	"time"

	"github.com/0x6d61/xssleech/internal/engine"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
)

// Run is one archived scan.
type Run struct {
	ID         string         `json:"id"`
	Inputs     string         `json:"inputs"`
	Config     map[string]any `json:"config,omitempty"`
	Status     string         `json:"status"`
	Pages      int            `json:"pages"`
	Vulnerable int            `json:"vulnerable"`
	Errors     int            `json:"errors"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// Store persists runs and findings.
type Store interface {
	// BeginRun inserts run with status running, assigning an ID if empty.
	BeginRun(ctx context.Context, run *Run) error

	// RecordFinding attaches f to the run.
	RecordFinding(ctx context.Context, runID string, f engine.Finding) error

	// FinishRun stores the final status and totals of a run.
	FinishRun(ctx context.Context, runID, status string, totals engine.Counters) error

	// LoadRun returns the run with the given ID, or (nil, nil).
	LoadRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns every run, newest first, without config snapshots.
	ListRuns(ctx context.Context) ([]*Run, error)

	// Findings returns a run's findings in the order they were recorded.
	Findings(ctx context.Context, runID string) ([]engine.Finding, error)

	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}

// runSink records findings into one run.
type runSink struct {
	store Store
	runID string
}

// Sink adapts store into an engine.FindingSink for runID.
func Sink(store Store, runID string) engine.FindingSink {
	return &runSink{store: store, runID: runID}
}

func (s *runSink) Record(ctx context.Context, f engine.Finding) error {
	return s.store.RecordFinding(ctx, s.runID, f)
}
