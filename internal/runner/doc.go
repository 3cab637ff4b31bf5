// Package runner executes task commands under supervision: shell spawn,
// per-stream 64 KiB output caps, timeout with SIGTERM-then-SIGKILL
// escalation, and guaranteed release of the running-task guard.
package runner
