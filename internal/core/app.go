package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"cronpilot/internal/api"
	"cronpilot/internal/config"
	"cronpilot/internal/runner"
	"cronpilot/internal/runtime/supervisor"
	"cronpilot/internal/scheduler"
	"cronpilot/internal/storage"
	"cronpilot/internal/store"
	"cronpilot/pkg/logx"
)

// App wires the process: config, logging, store, runner, scheduler, and the
// HTTP surface. It owns the single scheduler instance; everything receives
// it by reference (no package-level singletons).
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	st    *store.Store
	audit storage.Store
	sched *scheduler.Service
	srv   *api.Server

	sup *supervisor.Supervisor
}

func NewApp(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// No config file: run on defaults.
		cfg = &config.Config{}
		cfg.Defaults()
	}

	logSvc, log := logx.New(toLogxConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	audit, err := openAudit(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open audit storage: %w", err)
	}

	st := store.New(cfg.Store.Path, log.With(logx.String("comp", "store")))
	guard := runner.NewGuard()
	run := runner.New(st, guard, audit, log.With(logx.String("comp", "runner")))

	tick, err := config.ParseDurationOrDefault("scheduler.tick_interval", cfg.Scheduler.TickInterval, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(scheduler.Config{
		TickInterval: tick,
		Timezone:     cfg.Scheduler.Timezone,
	}, st, run, log.With(logx.String("comp", "scheduler")))

	srv := api.NewServer(sched, log.With(logx.String("comp", "http")))

	return &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		st:     st,
		audit:  audit,
		sched:  sched,
		srv:    srv,
	}, nil
}

// Scheduler exposes the facade (e.g. for embedding or tests).
func (a *App) Scheduler() *scheduler.Service { return a.sched }

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "app"))))

	if err := a.sched.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	cfg := a.cfgMgr.Get()
	if cfg != nil && cfg.HTTP.Enabled != nil && *cfg.HTTP.Enabled {
		addr := cfg.HTTP.Listen
		a.sup.Go("http", func(ctx context.Context) error {
			return a.srv.ListenAndServe(ctx, addr)
		})
	}

	a.sup.Go("config-watch", a.cfgMgr.Watch)
	a.sup.Go0("config-apply", a.applyConfigUpdates)

	a.log.Info("cronpilot started")
	return nil
}

// Stop shuts down in order: loop first, then app goroutines, then a drain
// that lets in-flight executions finish and flushes the store.
func (a *App) Stop(timeout time.Duration) {
	a.sched.Stop()
	if a.sup != nil {
		a.sup.Stop(timeout)
	}
	a.sched.Drain(timeout)
	if a.audit != nil {
		_ = a.audit.Close()
	}
	a.log.Info("cronpilot stopped")
	_ = a.logSvc.Close()
}

// applyConfigUpdates applies hot-reloadable settings (logging only; the
// scheduler keeps its tick and timezone until restart).
func (a *App) applyConfigUpdates(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(toLogxConfig(cfg.Logging))
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
		}
	}
}

func toLogxConfig(lc config.LoggingConfig) logx.Config {
	console := true
	if lc.Console != nil {
		console = *lc.Console
	}
	return logx.Config{
		Level:   lc.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func openAudit(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	if cfg.Storage == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "audit")))
}
