// Package store holds the authoritative in-memory task list and execution
// history, mirrored to a single JSON file.
//
// All disk writes funnel through one writer goroutine; a failed write never
// rolls back in-memory state.
package store
