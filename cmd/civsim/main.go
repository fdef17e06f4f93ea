// Command civsim runs the civitas population and economy simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/engine"
	"github.com/talgya/civitas/internal/persistence"
	"github.com/talgya/civitas/internal/systems"
	"github.com/talgya/civitas/internal/world"
)

func main() {
	configPath := flag.String("config", "civitas.yaml", "path to config file")
	dbPath := flag.String("db", "", "database path (overrides config)")
	resume := flag.Bool("resume", false, "resume from the saved world state")
	maxTicks := flag.Int64("max-ticks", -1, "stop after this many ticks (negative: run forever)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	setupLogging(*logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *resume && errors.Is(err, os.ErrNotExist) {
			// A resumed run re-reads its config from the database snapshot.
			cfg = config.Default()
		} else {
			slog.Error("load config failed", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *dbPath != "" {
		cfg.Simulation.DBPath = *dbPath
	}

	db, err := persistence.Open(cfg.Simulation.DBPath)
	if err != nil {
		slog.Error("open database failed", "path", cfg.Simulation.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Simulation.DBPath)

	available := []world.System{
		systems.NewProduction(),
		systems.NewConsumption(),
		systems.NewReplenish(),
		systems.NewResourceHistory(),
		systems.NewEntityHistory(),
		systems.NewJobHistory(),
		systems.NewSpawn(),
		systems.NewNeeds(),
		systems.NewFulfillment(),
		systems.NewHealth(),
		systems.NewDeath(),
		systems.NewJobs(),
	}

	var sim *engine.Simulation
	if *resume {
		sim, err = engine.Resume(db, available)
	} else {
		sim, err = engine.New(cfg, db, available)
	}
	if err != nil {
		slog.Error("build simulation failed", "error", err)
		os.Exit(1)
	}

	// SIGINT/SIGTERM stop the loop; the engine flushes on the way out.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sim.Run(ctx, *maxTicks); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}
