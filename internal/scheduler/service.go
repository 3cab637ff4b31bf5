package scheduler

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cronpilot/internal/runner"
	"cronpilot/internal/runtime/supervisor"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

const defaultTickInterval = 10 * time.Second

func New(cfg Config, st *store.Store, run *runner.Runner, log logx.Logger) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		st:        st,
		run:       run,
		lastFired: map[string]string{},
		// A few warnings per burst, then at most one every 5s.
		warnLim: rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
}

// Start is idempotent: it loads the store from disk, begins the tick loop,
// and performs one synchronous sweep so tasks due "now" are not missed
// until the next interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return nil
	}

	loc := s.loadLocationLocked()
	s.loc = loc

	if err := s.st.Load(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log.With(logx.String("comp", "scheduler"))))
	sup := s.sup
	interval := s.cfg.TickInterval
	s.mu.Unlock()

	sup.Go0("store-writer", func(ctx context.Context) {
		_ = ctx // the writer drains until the store is closed, not until ctx
		s.st.RunWriter()
	})
	sup.Go0("tick-loop", func(ctx context.Context) {
		s.loop(ctx, stopCh, interval)
	})

	// Synchronous first sweep.
	s.tick(time.Now().In(loc))

	s.log.Info("scheduler started",
		logx.Duration("tick", interval),
		logx.String("tz", loc.String()),
		logx.Int("tasks", len(s.st.Tasks())))
	return nil
}

// Stop halts the tick loop. In-flight executions are not aborted; their
// completions still update state and persist after shutdown.
func (s *Service) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	s.log.Info("scheduler stopped")
}

// Drain waits for in-flight executions (bounded by timeout) and flushes the
// store. Call once at process shutdown, after Stop().
func (s *Service) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(s.run.Guard().IDs()) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.st.Close()
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("unknown timezone, falling back to local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Running returns the ids of tasks currently mid-execution.
func (s *Service) Running() []string {
	return s.run.Guard().IDs()
}
