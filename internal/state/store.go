// Package state keeps a journal of transform runs in SQLite.
//
// Transforms edit datasets in place and cannot be rolled back, so every
// run is recorded before it starts and completed with its counters or
// error when it ends. A run left in the running state was interrupted.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// RunStatus represents the status of a journaled run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one journal entry.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Transform   string     `json:"transform" yaml:"transform"`
	Dataset     string     `json:"dataset" yaml:"dataset"`
	Params      string     `json:"params" yaml:"params"`
	DryRun      bool       `json:"dry_run" yaml:"dry_run"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Rows        int        `json:"rows" yaml:"rows"`
	Selected    int        `json:"selected" yaml:"selected"`
	Written     int        `json:"written" yaml:"written"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration is the wall time of a finished run, zero while running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Counts are the row counters stored with a completed run.
type Counts struct {
	Rows     int
	Selected int
	Written  int
}

// Journal records transform runs.
type Journal interface {
	// CreateRun stores a running entry. params is stored as JSON.
	CreateRun(ctx context.Context, transform, dataset string, params any, dryRun bool) (*Run, error)
	// CompleteRun finishes a run. A non-nil runErr marks it failed.
	CompleteRun(ctx context.Context, id string, c Counts, runErr error) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the newest runs first, optionally for one dataset.
	ListRuns(ctx context.Context, dataset string, limit int) ([]*Run, error)
	Close() error
}
