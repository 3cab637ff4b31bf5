// Package storage provides an optional append-only audit trail of completed
// executions, independent of the JSON task store.
//
// Drivers: "file" (JSON Lines) and "sqlite". Auditing is best-effort; a
// failed append is logged by the caller and never blocks the scheduler.
package storage
