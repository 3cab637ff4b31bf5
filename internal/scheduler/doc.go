// Package scheduler is the service facade: task CRUD with schedule
// validation, the minute-granular tick loop, manual runs, and state/history
// snapshots.
//
// Overlap semantics are skip-not-queue: a due minute that finds the task
// still running (or already consumed) is permanently lost, never replayed.
package scheduler
