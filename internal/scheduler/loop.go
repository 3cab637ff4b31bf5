package scheduler

import (
	"context"
	"time"

	"cronpilot/internal/cron"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

// minuteKeyFormat identifies one calendar minute.
const minuteKeyFormat = "2006-01-02 15:04"

func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case now := <-ticker.C:
			s.tick(now.In(s.location()))
		}
	}
}

func (s *Service) location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc == nil {
		s.loc = s.loadLocationLocked()
	}
	return s.loc
}

// tick evaluates every enabled task at most once per calendar minute. The
// tick interval is shorter than a minute, so consecutive ticks inside the
// same minute are no-ops.
func (s *Service) tick(now time.Time) {
	key := now.Format(minuteKeyFormat)

	s.mu.Lock()
	if key == s.lastTickKey {
		s.mu.Unlock()
		return
	}
	s.lastTickKey = key
	var spawn goSpawner = syncSpawner{}
	if s.sup != nil {
		spawn = s.sup
	}
	s.mu.Unlock()

	for _, t := range s.st.Tasks() {
		if !t.Enabled {
			continue
		}
		s.evaluate(spawn, t, now, key)
	}
}

// evaluate decides whether one task fires this minute. A failure here is
// logged and never stops the sweep for other tasks.
func (s *Service) evaluate(sup goSpawner, t store.Task, now time.Time, key string) {
	expr, err := cron.Compile(t.Schedule)
	if err != nil {
		// The facade validates schedules on write, so this indicates a
		// corrupted store entry.
		if s.warnLim.Allow() {
			s.log.Error("task schedule failed to compile",
				logx.String("task", t.Name),
				logx.String("schedule", t.Schedule),
				logx.Err(err))
		}
		return
	}
	if !expr.Matches(now) {
		return
	}

	s.mu.Lock()
	already := s.lastFired[t.ID] == key
	if !already {
		s.lastFired[t.ID] = key
	}
	s.mu.Unlock()
	if already {
		return
	}

	// Skip-not-queue: an overlapping due-time is permanently lost.
	if s.run.Guard().Contains(t.ID) {
		if s.warnLim.Allow() {
			s.log.Warn("task still running, skipping this cycle",
				logx.String("task", t.Name),
				logx.String("minute", key))
		}
		return
	}

	task := t
	spawn := sup.Go0
	spawn("run:"+task.Name, func(ctx context.Context) {
		_ = ctx // executions outlive loop shutdown by design
		if _, err := s.run.Run(context.Background(), task, store.TriggerSchedule); err != nil {
			// Lost the guard race against a manual trigger.
			s.log.Warn("scheduled run skipped", logx.String("task", task.Name), logx.Err(err))
		}
	})
}

// goSpawner is the slice of the supervisor the loop needs.
type goSpawner interface {
	Go0(name string, fn func(ctx context.Context))
}

// syncSpawner runs the launch inline. Used before Start() wires a
// supervisor (and by tests, which want deterministic execution).
type syncSpawner struct{}

func (syncSpawner) Go0(name string, fn func(ctx context.Context)) {
	_ = name
	fn(context.Background())
}
