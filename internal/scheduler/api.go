package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"cronpilot/internal/cron"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

// CreateTask validates the input, compiles the schedule, and appends the
// task. The stored schedule is the normalized form of the input.
func (s *Service) CreateTask(in CreateInput) (store.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.Task{}, invalidf("name", "must not be empty")
	}
	command := strings.TrimSpace(in.Command)
	if command == "" {
		return store.Task{}, invalidf("command", "must not be empty")
	}

	norm := cron.Normalize(in.Schedule)
	if _, err := cron.Compile(norm); err != nil {
		return store.Task{}, invalidf("schedule", "%v", err)
	}

	timeoutMs := store.DefaultTimeoutMs
	if in.TimeoutMs != nil {
		timeoutMs = *in.TimeoutMs
	}
	if err := validateTimeout(timeoutMs); err != nil {
		return store.Task{}, err
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	now := time.Now().In(s.location())
	t := store.Task{
		ID:         uuid.NewString(),
		Name:       name,
		Schedule:   norm,
		Command:    command,
		Enabled:    enabled,
		TimeoutMs:  timeoutMs,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastStatus: store.StatusIdle,
	}
	s.st.AddTask(t)
	s.st.Persist()

	s.log.Info("task created",
		logx.String("task", t.Name),
		logx.String("id", t.ID),
		logx.String("schedule", t.Schedule))
	return t, nil
}

// UpdateTask applies the provided fields only. The schedule is re-validated
// and re-compiled when changed.
func (s *Service) UpdateTask(in UpdateInput) (store.Task, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return store.Task{}, invalidf("name", "must not be empty")
	}
	if in.Command != nil && strings.TrimSpace(*in.Command) == "" {
		return store.Task{}, invalidf("command", "must not be empty")
	}

	var norm string
	if in.Schedule != nil {
		norm = cron.Normalize(*in.Schedule)
		if _, err := cron.Compile(norm); err != nil {
			return store.Task{}, invalidf("schedule", "%v", err)
		}
	}
	if in.TimeoutMs != nil {
		if err := validateTimeout(*in.TimeoutMs); err != nil {
			return store.Task{}, err
		}
	}

	err := s.st.UpdateTask(in.ID, func(t *store.Task) {
		if in.Name != nil {
			t.Name = strings.TrimSpace(*in.Name)
		}
		if in.Schedule != nil {
			t.Schedule = norm
		}
		if in.Command != nil {
			t.Command = strings.TrimSpace(*in.Command)
		}
		if in.Enabled != nil {
			t.Enabled = *in.Enabled
		}
		if in.TimeoutMs != nil {
			t.TimeoutMs = *in.TimeoutMs
		}
		t.UpdatedAt = time.Now().In(s.location())
	})
	if err != nil {
		return store.Task{}, err
	}
	s.st.Persist()

	t, _ := s.st.Task(in.ID)
	s.log.Info("task updated", logx.String("task", t.Name), logx.String("id", t.ID))
	return t, nil
}

// DeleteTask removes the task and purges its history.
func (s *Service) DeleteTask(id string) error {
	if err := s.st.DeleteTask(id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.lastFired, id)
	s.mu.Unlock()
	s.st.Persist()

	s.log.Info("task deleted", logx.String("id", id))
	return nil
}

// RunNow triggers one manual execution and waits for it. It shares the
// running-task guard with the loop, so a mid-execution task yields
// ErrAlreadyRunning and no record.
func (s *Service) RunNow(ctx context.Context, id string) (store.ExecutionRecord, error) {
	t, ok := s.st.Task(id)
	if !ok {
		return store.ExecutionRecord{}, ErrNotFound
	}
	return s.run.Run(ctx, t, store.TriggerManual)
}

// State returns a snapshot: tasks newest-created first, a history copy, the
// running id set, server time, and the resolved timezone name.
func (s *Service) State() State {
	tasks := s.st.Tasks()
	// Newest-created first.
	for i, j := 0, len(tasks)-1; i < j; i, j = i+1, j-1 {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	}
	loc := s.location()
	return State{
		Tasks:      tasks,
		History:    s.st.History("", store.HistoryLimit),
		Running:    s.Running(),
		ServerTime: time.Now().In(loc),
		Timezone:   loc.String(),
	}
}

// History returns up to limit records (clamped to [1, store.HistoryLimit]),
// optionally filtered by task id, newest first.
func (s *Service) History(taskID string, limit int) []store.ExecutionRecord {
	return s.st.History(taskID, limit)
}

func validateTimeout(ms int) error {
	if ms < store.MinTimeoutMs || ms > store.MaxTimeoutMs {
		return invalidf("timeoutMs", "must be between %d and %d", store.MinTimeoutMs, store.MaxTimeoutMs)
	}
	return nil
}
