package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"cronpilot/internal/storage"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

const (
	// maxCaptureBytes caps each captured stream at 64 KiB.
	maxCaptureBytes = 64 * 1024

	// killGracePeriod is how long a process gets after SIGTERM before
	// SIGKILL.
	killGracePeriod = 2 * time.Second

	// lastErrorStderrLimit bounds how much stderr is folded into a task's
	// denormalized LastError summary.
	lastErrorStderrLimit = 500
)

// ErrAlreadyRunning is returned when a task is triggered while a previous
// run is still in flight. No execution record is produced in that case.
var ErrAlreadyRunning = errors.New("task already running")

// Runner supervises one subprocess per execution: spawn through a shell,
// capture capped output, enforce the task timeout with graceful-then-forceful
// termination, and fold the outcome into the store.
type Runner struct {
	log   logx.Logger
	guard *Guard
	st    *store.Store
	audit storage.Store // may be nil
}

func New(st *store.Store, guard *Guard, audit storage.Store, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{log: log, guard: guard, st: st, audit: audit}
}

func (r *Runner) Guard() *Guard { return r.guard }

// Run executes the task once and returns its record. The only error it can
// return is ErrAlreadyRunning; every failure mode of the execution itself is
// captured inside the record, so a failing job never crashes the scheduler.
func (r *Runner) Run(ctx context.Context, t store.Task, trigger store.Trigger) (store.ExecutionRecord, error) {
	if !r.guard.TryAcquire(t.ID) {
		return store.ExecutionRecord{}, ErrAlreadyRunning
	}

	startedAt := time.Now()

	// Transitional state so readers see "in progress" right away.
	_ = r.st.UpdateTask(t.ID, func(task *store.Task) {
		task.LastStatus = store.StatusRunning
		task.LastRunAt = &startedAt
	})
	r.st.Persist()

	r.log.Info("task starting",
		logx.String("task", t.Name),
		logx.String("id", t.ID),
		logx.String("trigger", string(trigger)))

	var rec store.ExecutionRecord
	func() {
		defer r.guard.Release(t.ID)
		rec = r.execute(t, trigger, startedAt)
	}()

	r.finish(ctx, t, rec)
	return rec, nil
}

// execute spawns the command and derives the record. It never panics out;
// spawn and wait failures become status "error".
func (r *Runner) execute(t store.Task, trigger store.Trigger, startedAt time.Time) store.ExecutionRecord {
	rec := store.ExecutionRecord{
		ID:        uuid.NewString(),
		TaskID:    t.ID,
		TaskName:  t.Name,
		Trigger:   trigger,
		StartedAt: startedAt,
	}

	timeout := time.Duration(t.TimeoutMs) * time.Millisecond

	stdout := newCapBuffer(maxCaptureBytes)
	stderr := newCapBuffer(maxCaptureBytes)

	// The command runs in its own process group so timeout signals reach
	// shell children too.
	cmd := exec.Command("sh", "-c", t.Command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		rec.Status = store.StatusError
		rec.Error = err.Error()
		rec.FinishedAt = time.Now()
		rec.DurationMs = rec.FinishedAt.Sub(startedAt).Milliseconds()
		return rec
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		rec.TimedOut = true
		waitErr = r.terminate(cmd, waitCh, t)
	}

	rec.FinishedAt = time.Now()
	rec.DurationMs = rec.FinishedAt.Sub(startedAt).Milliseconds()
	rec.Stdout = stdout.String()
	rec.Stderr = stderr.String()

	switch {
	case rec.TimedOut:
		rec.Status = store.StatusTimeout
	case waitErr == nil:
		rec.Status = store.StatusSuccess
		code := 0
		rec.ExitCode = &code
	default:
		rec.Status = store.StatusError
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if code := exitErr.ExitCode(); code >= 0 {
				rec.ExitCode = &code
			}
		} else {
			rec.Error = waitErr.Error()
		}
	}
	return rec
}

// terminate escalates: SIGTERM, then SIGKILL after the grace period. It
// signals the whole process group and always returns the final wait error.
func (r *Runner) terminate(cmd *exec.Cmd, waitCh <-chan error, t store.Task) error {
	pid := cmd.Process.Pid
	r.log.Warn("task timed out, terminating",
		logx.String("task", t.Name),
		logx.Int("timeout_ms", t.TimeoutMs))

	_ = syscall.Kill(-pid, syscall.SIGTERM)

	grace := time.NewTimer(killGracePeriod)
	defer grace.Stop()
	select {
	case err := <-waitCh:
		return err
	case <-grace.C:
		r.log.Warn("task ignored SIGTERM, killing", logx.String("task", t.Name))
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		return <-waitCh
	}
}

// finish folds the record into the task's denormalized last-run fields,
// prepends it to history, persists, and appends to the audit trail.
func (r *Runner) finish(ctx context.Context, t store.Task, rec store.ExecutionRecord) {
	summary := lastErrorSummary(rec)
	_ = r.st.UpdateTask(t.ID, func(task *store.Task) {
		task.LastStatus = rec.Status
		task.LastRunAt = &rec.StartedAt
		task.LastDurationMs = rec.DurationMs
		task.LastExitCode = rec.ExitCode
		task.LastError = summary
	})
	r.st.AppendHistory(rec)
	r.st.Persist()

	lvl := r.log.Info
	if rec.Status != store.StatusSuccess {
		lvl = r.log.Warn
	}
	lvl("task finished",
		logx.String("task", rec.TaskName),
		logx.String("status", string(rec.Status)),
		logx.Int64("duration_ms", rec.DurationMs))

	if r.audit != nil {
		entry := storage.AuditEntry{
			At:          rec.FinishedAt,
			ExecutionID: rec.ID,
			TaskID:      rec.TaskID,
			TaskName:    rec.TaskName,
			Trigger:     string(rec.Trigger),
			Status:      string(rec.Status),
			DurationMS:  rec.DurationMs,
			ExitCode:    rec.ExitCode,
			TimedOut:    rec.TimedOut,
			Error:       rec.Error,
		}
		if err := r.audit.AppendExecution(ctx, entry); err != nil {
			r.log.Warn("audit append failed", logx.Err(err))
		}
	}
}

// lastErrorSummary builds the single human-readable failure summary shown
// on the task itself. Empty for successful runs.
func lastErrorSummary(rec store.ExecutionRecord) string {
	if rec.Status == store.StatusSuccess {
		return ""
	}
	var parts []string
	if rec.TimedOut {
		parts = append(parts, fmt.Sprintf("timed out after %dms", rec.DurationMs))
	}
	if rec.Error != "" {
		parts = append(parts, rec.Error)
	}
	if serr := strings.TrimSpace(rec.Stderr); serr != "" {
		if len(serr) > lastErrorStderrLimit {
			serr = serr[:lastErrorStderrLimit] + "..."
		}
		parts = append(parts, serr)
	}
	if rec.ExitCode != nil && *rec.ExitCode != 0 {
		parts = append(parts, fmt.Sprintf("exit code %d", *rec.ExitCode))
	}
	if len(parts) == 0 {
		parts = append(parts, "command failed")
	}
	return strings.Join(parts, "; ")
}
