package scheduler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cronpilot/internal/runner"
	"cronpilot/internal/runtime/supervisor"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

// Config controls the scheduling loop.
type Config struct {
	// TickInterval is how often the loop wakes up. Evaluation happens at
	// most once per calendar minute regardless of the interval.
	TickInterval time.Duration

	// Timezone is an IANA name; empty means the process-local zone.
	Timezone string
}

// Service is the facade the rest of the process talks to: task CRUD,
// manual runs, state/history reads, and the scheduling loop lifecycle.
// The app constructs exactly one and hands it around by reference.
type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	st  *store.Store
	run *runner.Runner
	loc *time.Location

	sup    *supervisor.Supervisor
	stopCh chan struct{}

	// lastTickKey dedupes ticks within one calendar minute; lastFired
	// dedupes per-task triggers when the loop catches up after a delay.
	// Both are process-local and never persisted.
	lastTickKey string
	lastFired   map[string]string

	// warnLim throttles repeating loop warnings (overlap skips, schedule
	// evaluation failures).
	warnLim *rate.Limiter
}

// State is a point-in-time snapshot for readers.
type State struct {
	Tasks      []store.Task            `json:"tasks"`
	History    []store.ExecutionRecord `json:"history"`
	Running    []string                `json:"running"`
	ServerTime time.Time               `json:"serverTime"`
	Timezone   string                  `json:"timezone"`
}

// CreateInput creates a task. Enabled defaults to true, TimeoutMs to
// store.DefaultTimeoutMs.
type CreateInput struct {
	Name      string `json:"name"`
	Schedule  string `json:"schedule"`
	Command   string `json:"command"`
	Enabled   *bool  `json:"enabled,omitempty"`
	TimeoutMs *int   `json:"timeoutMs,omitempty"`
}

// UpdateInput applies a partial update; nil fields are left untouched.
type UpdateInput struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	Schedule  *string `json:"schedule,omitempty"`
	Command   *string `json:"command,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
	TimeoutMs *int    `json:"timeoutMs,omitempty"`
}
