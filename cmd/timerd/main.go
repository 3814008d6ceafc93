package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/timerd/internal/config"
	"git.home.luguber.info/inful/timerd/internal/daemon"
	"git.home.luguber.info/inful/timerd/internal/store"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"timerd.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct{} `cmd:"" help:"Run the timer daemon"`

	Validate struct{} `cmd:"" help:"Validate the configuration and list the defined timers"`

	Snapshots struct{} `cmd:"" help:"Dump the persisted timer snapshots"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timerd: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	switch ctx.Command() {
	case "run":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "validate":
		printTimers(cfg)
	case "snapshots":
		if err := printSnapshots(cfg); err != nil {
			slog.Error("Failed to read snapshots", "error", err)
			os.Exit(1)
		}
	default:
		_ = ctx.PrintUsage(false)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level := cfg.Logging.Level.SlogLevel()
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runDaemon(cfg *config.Config) error {
	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return d.Stop(shutdownCtx)
}

func printTimers(cfg *config.Config) {
	fmt.Printf("Configuration OK: %d timer(s)\n", len(cfg.Timers))
	for _, id := range cfg.TimerIDs() {
		tc := cfg.Timers[id]
		fmt.Printf("  %-20s duration=%s restore=%t grace=%s\n",
			id, tc.Duration, tc.RestoreEnabled(), tc.RestoreGracePeriod)
	}
}

func printSnapshots(cfg *config.Config) error {
	s, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	all, err := s.All(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No snapshots stored")
		return nil
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		snap := all[id]
		line := fmt.Sprintf("  %-20s state=%s duration=%s", id, snap.State, config.Duration(snap.Duration))
		if snap.EndAt != nil {
			line += fmt.Sprintf(" end_at=%s", snap.EndAt.Format(time.RFC3339))
		}
		if snap.Remaining > 0 {
			line += fmt.Sprintf(" remaining=%s", config.Duration(snap.Remaining))
		}
		fmt.Println(line)
	}
	return nil
}
