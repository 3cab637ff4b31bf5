package store

import "time"

// Status is a task or execution state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Trigger records what caused an execution.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Timeout bounds for a task, in milliseconds.
const (
	MinTimeoutMs     = 1_000
	MaxTimeoutMs     = 600_000
	DefaultTimeoutMs = 60_000
)

// HistoryLimit caps the global execution history (oldest dropped first).
const HistoryLimit = 200

// Task is a user-defined recurring job.
//
// Schedule is always a string that compiles; the store never holds an
// uncompilable schedule (the facade validates before any mutation).
// The Last* fields are a denormalized summary of the most recent run.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Schedule  string `json:"schedule"`
	Command   string `json:"command"`
	Enabled   bool   `json:"enabled"`
	TimeoutMs int    `json:"timeoutMs"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LastRunAt      *time.Time `json:"lastRunAt,omitempty"`
	LastStatus     Status     `json:"lastStatus"`
	LastDurationMs int64      `json:"lastDurationMs,omitempty"`
	LastExitCode   *int       `json:"lastExitCode,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
}

// ExecutionRecord is an immutable record of one run. TaskName is a snapshot
// so history stays readable after a task is renamed or deleted.
type ExecutionRecord struct {
	ID       string  `json:"id"`
	TaskID   string  `json:"taskId"`
	TaskName string  `json:"taskName"`
	Trigger  Trigger `json:"trigger"`
	Status   Status  `json:"status"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`

	ExitCode *int   `json:"exitCode"`
	TimedOut bool   `json:"timedOut"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Error    string `json:"error,omitempty"`
}

// document is the persisted aggregate.
type document struct {
	Version int               `json:"version"`
	Tasks   []Task            `json:"tasks"`
	History []ExecutionRecord `json:"history"`
}

const documentVersion = 1
