package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the execution audit trail.
//
// Driver values:
//   - "file": dependency-free JSON Lines append log
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", auditing is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one completed execution.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At          time.Time `json:"at"`
	ExecutionID string    `json:"executionId"`
	TaskID      string    `json:"taskId"`
	TaskName    string    `json:"taskName"`
	Trigger     string    `json:"trigger"`
	Status      string    `json:"status"`
	DurationMS  int64     `json:"durationMs"`
	ExitCode    *int      `json:"exitCode,omitempty"`
	TimedOut    bool      `json:"timedOut"`
	Error       string    `json:"error,omitempty"`
}
