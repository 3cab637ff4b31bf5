package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cronpilot/internal/runner"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "store.json"), logx.Nop())
	run := runner.New(st, runner.NewGuard(), nil, logx.Nop())
	return New(Config{Timezone: "UTC"}, st, run, logx.Nop()), st
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestCreateTaskDefaults(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	task, err := svc.CreateTask(CreateInput{
		Name:     "  nightly backup ",
		Schedule: "0 3 * * MON-FRI",
		Command:  "true",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("task should get an id")
	}
	if task.Name != "nightly backup" {
		t.Fatalf("Name = %q, trimming broken", task.Name)
	}
	if task.Schedule != "0 3 * * mon-fri" {
		t.Fatalf("Schedule = %q, want the normalized form", task.Schedule)
	}
	if !task.Enabled {
		t.Fatal("Enabled should default to true")
	}
	if task.TimeoutMs != store.DefaultTimeoutMs {
		t.Fatalf("TimeoutMs = %d, want default", task.TimeoutMs)
	}
	if task.LastStatus != store.StatusIdle {
		t.Fatalf("LastStatus = %s, want idle", task.LastStatus)
	}
	if len(st.Tasks()) != 1 {
		t.Fatal("task should be stored")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty name", CreateInput{Schedule: "* * * * *", Command: "true"}, "name"},
		{"blank command", CreateInput{Name: "x", Schedule: "* * * * *", Command: "  "}, "command"},
		{"bad schedule", CreateInput{Name: "x", Schedule: "every tuesday", Command: "true"}, "schedule"},
		{"timeout too small", CreateInput{Name: "x", Schedule: "* * * * *", Command: "true", TimeoutMs: intPtr(10)}, "timeoutMs"},
		{"timeout too large", CreateInput{Name: "x", Schedule: "* * * * *", Command: "true", TimeoutMs: intPtr(10_000_000)}, "timeoutMs"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}

	if len(st.Tasks()) != 0 {
		t.Fatal("rejected inputs must not create tasks")
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.CreateTask(CreateInput{Name: "job", Schedule: "0 * * * *", Command: "true"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	updated, err := svc.UpdateTask(UpdateInput{
		ID:      created.ID,
		Command: strPtr("echo changed"),
		Enabled: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Command != "echo changed" || updated.Enabled {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Name != "job" || updated.Schedule != "0 * * * *" {
		t.Fatal("untouched fields must keep their values")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatal("UpdatedAt went backwards")
	}

	if _, err := svc.UpdateTask(UpdateInput{ID: created.ID, Schedule: strPtr("bogus")}); err == nil {
		t.Fatal("invalid schedule must be rejected on update")
	}
	if _, err := svc.UpdateTask(UpdateInput{ID: "missing", Name: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id = %v, want ErrNotFound", err)
	}
}

func TestTickFiresOncePerMinute(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	if _, err := svc.CreateTask(CreateInput{Name: "every-minute", Schedule: "* * * * *", Command: "true"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	now := time.Date(2030, 6, 1, 12, 0, 5, 0, time.UTC)
	svc.tick(now)
	if st.HistoryLen() != 1 {
		t.Fatalf("history after first tick = %d, want 1", st.HistoryLen())
	}

	// Second tick inside the same calendar minute is a no-op.
	svc.tick(now.Add(10 * time.Second))
	if st.HistoryLen() != 1 {
		t.Fatalf("history after same-minute tick = %d, want 1", st.HistoryLen())
	}

	svc.tick(now.Add(time.Minute))
	if st.HistoryLen() != 2 {
		t.Fatalf("history after next minute = %d, want 2", st.HistoryLen())
	}
}

func TestTickSkipsDisabledAndNonMatching(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	if _, err := svc.CreateTask(CreateInput{
		Name: "off", Schedule: "* * * * *", Command: "true", Enabled: boolPtr(false),
	}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := svc.CreateTask(CreateInput{
		Name: "new-year only", Schedule: "0 0 1 1 *", Command: "true",
	}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	svc.tick(time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC))
	if st.HistoryLen() != 0 {
		t.Fatalf("history = %d, want 0", st.HistoryLen())
	}
}

func TestEvaluateDedupesPerTask(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	task, err := svc.CreateTask(CreateInput{Name: "dup", Schedule: "* * * * *", Command: "true"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	key := now.Format(minuteKeyFormat)
	stored, _ := st.Task(task.ID)

	svc.evaluate(syncSpawner{}, stored, now, key)
	svc.evaluate(syncSpawner{}, stored, now, key)
	if st.HistoryLen() != 1 {
		t.Fatalf("history = %d, the same minute fired twice", st.HistoryLen())
	}
}

func TestTickSkipsRunningTask(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	task, err := svc.CreateTask(CreateInput{Name: "held", Schedule: "* * * * *", Command: "true"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// Simulate a previous run still in flight.
	if !svc.run.Guard().TryAcquire(task.ID) {
		t.Fatal("guard acquire failed")
	}
	defer svc.run.Guard().Release(task.ID)

	svc.tick(time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC))
	if st.HistoryLen() != 0 {
		t.Fatal("overlapping due-time must be skipped, not queued")
	}
}

func TestRunNow(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	task, err := svc.CreateTask(CreateInput{Name: "manual", Schedule: "0 0 1 1 *", Command: "echo hi"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec, err := svc.RunNow(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if rec.Trigger != store.TriggerManual || rec.Status != store.StatusSuccess {
		t.Fatalf("record = %+v", rec)
	}
	if st.HistoryLen() != 1 {
		t.Fatalf("history = %d, want 1", st.HistoryLen())
	}

	if _, err := svc.RunNow(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id = %v, want ErrNotFound", err)
	}
}

func TestStateSnapshot(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	first, _ := svc.CreateTask(CreateInput{Name: "first", Schedule: "* * * * *", Command: "true"})
	second, _ := svc.CreateTask(CreateInput{Name: "second", Schedule: "* * * * *", Command: "true"})

	state := svc.State()
	if len(state.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(state.Tasks))
	}
	if state.Tasks[0].ID != second.ID || state.Tasks[1].ID != first.ID {
		t.Fatal("tasks should be newest-created first")
	}
	if state.Timezone != "UTC" {
		t.Fatalf("Timezone = %q", state.Timezone)
	}
	if state.ServerTime.IsZero() {
		t.Fatal("ServerTime should be set")
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)

	task, _ := svc.CreateTask(CreateInput{Name: "gone", Schedule: "* * * * *", Command: "true"})
	svc.tick(time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC))
	if st.HistoryLen() != 1 {
		t.Fatalf("history = %d, want 1", st.HistoryLen())
	}

	if err := svc.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if len(st.Tasks()) != 0 || st.HistoryLen() != 0 {
		t.Fatal("delete should purge the task and its history")
	}
	if errors.Is(svc.DeleteTask(task.ID), ErrNotFound) == false {
		t.Fatal("second delete should report ErrNotFound")
	}
}
