// Package daemon wires configuration, the snapshot store, the event bus, and
// the timer registry into a long-running service with an HTTP control surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/timerd/internal/bus"
	"git.home.luguber.info/inful/timerd/internal/clock"
	"git.home.luguber.info/inful/timerd/internal/config"
	"git.home.luguber.info/inful/timerd/internal/logfields"
	"git.home.luguber.info/inful/timerd/internal/metrics"
	"git.home.luguber.info/inful/timerd/internal/store"
	"git.home.luguber.info/inful/timerd/internal/timer"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Daemon is the top-level coordinator owning all components.
type Daemon struct {
	cfg        *config.Config
	configPath string
	status     atomic.Value // Status
	startTime  time.Time

	clk       *clock.AlarmClock
	snapshots store.Store
	events    bus.Bus
	registry  *timer.Registry
	recorder  metrics.Recorder
	promReg   *prom.Registry

	scheduler  gocron.Scheduler
	watcher    *ConfigWatcher
	httpServer *HTTPServer

	reloadMu sync.Mutex
}

// New assembles a daemon from configuration. configPath may be empty to
// disable config file watching.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		clk:        clock.New(),
		promReg:    prom.NewRegistry(),
	}
	d.status.Store(StatusStopped)
	d.recorder = metrics.NewPrometheusRecorder(d.promReg)

	snapshots, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	d.snapshots = snapshots

	if cfg.NATS.Enabled {
		natsBus, err := bus.NewNATSBus(cfg.NATS)
		if err != nil {
			_ = snapshots.Close()
			return nil, fmt.Errorf("connect event bus: %w", err)
		}
		d.events = natsBus
	} else {
		d.events = bus.NewInprocBus()
	}

	d.registry = timer.NewRegistry()
	d.addConfiguredTimers(cfg.Timers)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		_ = snapshots.Close()
		_ = d.events.Close()
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	d.scheduler = scheduler

	d.httpServer = NewHTTPServer(cfg.Daemon.Listen, d.registry, d.promReg)

	if configPath != "" {
		watcher, err := NewConfigWatcher(configPath, d)
		if err != nil {
			slog.Warn("Config watching disabled", logfields.Error(err))
		} else {
			d.watcher = watcher
		}
	}

	return d, nil
}

// Status returns the daemon lifecycle status.
func (d *Daemon) Status() Status {
	return d.status.Load().(Status)
}

// Registry exposes the timer registry (used by the HTTP handlers and tests).
func (d *Daemon) Registry() *timer.Registry { return d.registry }

// addConfiguredTimers creates entities for the given definitions. A bad
// definition rejects only that timer.
func (d *Daemon) addConfiguredTimers(defs map[string]config.TimerConfig) {
	for id, tc := range defs {
		t, err := d.newTimer(id, tc)
		if err != nil {
			slog.Error("Skipping invalid timer definition",
				logfields.TimerID(id),
				logfields.Error(err))
			continue
		}
		if err := d.registry.Add(t); err != nil {
			slog.Error("Skipping duplicate timer definition",
				logfields.TimerID(id),
				logfields.Error(err))
		}
	}
}

func (d *Daemon) newTimer(id string, tc config.TimerConfig) (*timer.Timer, error) {
	return timer.New(timer.Settings{
		ID:             id,
		Duration:       tc.Duration.Std(),
		RestoreEnabled: tc.RestoreEnabled(),
		GracePeriod:    tc.RestoreGracePeriod.Std(),
	}, d.clk, d.events, d.recorder)
}

// Start brings the daemon up: restore timers from snapshots, arm the periodic
// snapshot flush, start the config watcher and the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	d.status.Store(StatusStarting)
	d.startTime = time.Now()

	d.registry.RestoreAll(ctx, d.snapshots, d.clk.Now())

	interval := d.cfg.Storage.FlushInterval.Std()
	_, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.flushSnapshots),
		gocron.WithName("snapshot-flush"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot flush job: %w", err)
	}
	d.scheduler.Start()

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			slog.Warn("Failed to start config watcher", logfields.Error(err))
		}
	}

	go func() {
		if err := d.httpServer.Start(); err != nil {
			slog.Error("HTTP server failed", logfields.Error(err))
		}
	}()

	d.status.Store(StatusRunning)
	slog.Info("Daemon started",
		slog.String("listen", d.cfg.Daemon.Listen),
		slog.Int("timers", len(d.registry.IDs())),
		slog.Duration("flush_interval", interval))
	return nil
}

// Stop winds the daemon down, persisting a final snapshot sweep.
func (d *Daemon) Stop(ctx context.Context) error {
	d.status.Store(StatusStopping)
	slog.Info("Stopping daemon")

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if err := d.scheduler.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	if err := d.httpServer.Stop(ctx); err != nil {
		slog.Warn("HTTP server shutdown failed", logfields.Error(err))
	}

	if err := d.registry.SnapshotAll(ctx, d.snapshots); err != nil {
		slog.Error("Final snapshot flush failed", logfields.Error(err))
	}

	if err := d.events.Close(); err != nil {
		slog.Warn("Event bus close failed", logfields.Error(err))
	}
	if err := d.snapshots.Close(); err != nil {
		slog.Warn("Snapshot store close failed", logfields.Error(err))
	}

	d.status.Store(StatusStopped)
	return nil
}

// flushSnapshots is invoked by the scheduler to persist all timer snapshots.
func (d *Daemon) flushSnapshots() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.registry.SnapshotAll(ctx, d.snapshots); err != nil {
		slog.Warn("Snapshot flush failed", logfields.Error(err))
		return
	}
	slog.Debug("Snapshots flushed", slog.Int("timers", len(d.registry.IDs())))
}

// Reload re-reads the configuration file and reshapes the timer set: new
// timers are added idle, removed timers are cancelled and dropped, and
// changed definitions replace their entity once it is idle. Running timers
// keep their live state.
func (d *Daemon) Reload() error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	newCfg, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Removed timers.
	for _, id := range d.registry.IDs() {
		if _, ok := newCfg.Timers[id]; ok {
			continue
		}
		t, _ := d.registry.Remove(id)
		if t != nil && t.State() != timer.Idle {
			if err := t.Cancel(); err != nil {
				slog.Warn("Failed to cancel removed timer",
					logfields.TimerID(id),
					logfields.Error(err))
			}
		}
		if err := d.snapshots.Delete(ctx, id); err != nil {
			slog.Warn("Failed to delete snapshot of removed timer",
				logfields.TimerID(id),
				logfields.Error(err))
		}
		slog.Info("Timer removed", logfields.TimerID(id))
	}

	// New and changed timers.
	for id, tc := range newCfg.Timers {
		existing, ok := d.registry.Get(id)
		if !ok {
			t, err := d.newTimer(id, tc)
			if err != nil {
				slog.Error("Skipping invalid timer definition",
					logfields.TimerID(id),
					logfields.Error(err))
				continue
			}
			if err := d.registry.Add(t); err != nil {
				slog.Error("Failed to add timer", logfields.TimerID(id), logfields.Error(err))
				continue
			}
			slog.Info("Timer added", logfields.TimerID(id))
			continue
		}

		if !settingsChanged(existing, tc) {
			continue
		}
		if existing.State() != timer.Idle {
			slog.Warn("Deferring settings change for running timer",
				logfields.TimerID(id),
				logfields.State(string(existing.State())))
			continue
		}
		t, err := d.newTimer(id, tc)
		if err != nil {
			slog.Error("Skipping invalid timer definition",
				logfields.TimerID(id),
				logfields.Error(err))
			continue
		}
		d.registry.Replace(t)
		slog.Info("Timer definition updated", logfields.TimerID(id))
	}

	d.cfg = newCfg
	return nil
}

func settingsChanged(t *timer.Timer, tc config.TimerConfig) bool {
	return t.Duration() != tc.Duration.Std() ||
		t.RestoreEnabled() != tc.RestoreEnabled() ||
		t.GracePeriod() != tc.RestoreGracePeriod.Std()
}
