// Package engine provides the tick-based simulation loop: clock advance,
// modifier lifecycle, ordered system dispatch with failure isolation,
// periodic persistence, and cadence-driven snapshot logging.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/clock"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/persistence"
	"github.com/talgya/civitas/internal/world"
)

// RunState tracks the scheduler lifecycle. A simulation runs once.
type RunState int

const (
	NotStarted RunState = iota
	Running
	Stopped
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type logCadence struct {
	name string
	freq cadence.Frequency
	rate int
	last time.Time
}

// Simulation drives the world forward one hour per tick. The loop is
// single-threaded; systems run sequentially in registration order and all
// mutation happens on the loop goroutine.
type Simulation struct {
	cfg      *config.Config
	clk      *clock.Clock
	state    *world.State
	db       *persistence.DB
	snapshot []byte
	logs     []logCadence
	runState RunState
}

// New builds a fresh simulation from config: new world state seeded from the
// config, resource pools created, and the named systems registered and
// initialized in config order.
func New(cfg *config.Config, db *persistence.DB, available []world.System) (*Simulation, error) {
	st := world.NewState(cfg.Simulation.Seed.Value)
	for _, rc := range cfg.Resources {
		if err := st.AddResource(resourceFromConfig(rc)); err != nil {
			return nil, err
		}
	}
	sim := &Simulation{
		cfg:   cfg,
		clk:   clock.New(cfg.Simulation.StartTime()),
		state: st,
		db:    db,
	}
	if err := sim.finishSetup(cfg.Systems, available); err != nil {
		return nil, err
	}
	slog.Info("simulation created",
		"start", cfg.Simulation.StartTime().Format(config.TimeLayout),
		"seed", st.Seed(),
		"systems", len(st.Systems()),
		"resources", len(st.Resources()))
	return sim, nil
}

// Resume rebuilds a simulation from the last save. The config snapshot
// persisted with the world drives system re-initialization, so a resumed run
// continues with the values the original run used, whatever the current
// config file says.
func Resume(db *persistence.DB, available []world.System) (*Simulation, error) {
	loaded, err := db.LoadWorldState()
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	cfg, err := config.Parse(loaded.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	sim := &Simulation{
		cfg:   cfg,
		clk:   clock.Restore(loaded.Now, loaded.Ticks),
		state: loaded.State,
		db:    db,
	}
	if err := sim.finishSetup(loaded.SystemIDs, available); err != nil {
		return nil, err
	}
	slog.Info("simulation resumed",
		"at", loaded.Now.Format(config.TimeLayout),
		"tick", loaded.Ticks,
		"seed", loaded.State.Seed())
	return sim, nil
}

func (sim *Simulation) finishSetup(systemIDs []string, available []world.System) error {
	byID := make(map[string]world.System, len(available))
	for _, sys := range available {
		byID[sys.ID()] = sys
	}
	for _, id := range systemIDs {
		sys, ok := byID[id]
		if !ok {
			return fmt.Errorf("engine: unknown system %q", id)
		}
		if err := sim.state.RegisterSystem(sys); err != nil {
			return err
		}
		if err := sys.Init(sim.state, sim.cfg); err != nil {
			return fmt.Errorf("engine: init system %q: %w", id, err)
		}
	}

	snapshot, err := sim.cfg.Snapshot()
	if err != nil {
		return err
	}
	sim.snapshot = snapshot

	for _, lc := range sim.cfg.Logging {
		freq, err := cadence.Parse(lc.Frequency)
		if err != nil {
			return fmt.Errorf("engine: logging cadence %q: %w", lc.Name, err)
		}
		sim.logs = append(sim.logs, logCadence{name: lc.Name, freq: freq, rate: lc.Rate})
	}
	return nil
}

func resourceFromConfig(rc config.ResourceConfig) *world.Resource {
	r := world.NewResource(rc.ID, rc.Name, 0)
	r.Finite = rc.Finite
	r.ReplenishRate = rc.ReplenishRate
	r.ReplenishFreq = cadence.Frequency(rc.ReplenishFreq)
	r.ReplenishEvery = rc.ReplenishPerCycle
	if rc.Capacity != nil {
		capacity := *rc.Capacity
		r.Capacity = &capacity
	}
	r.SetAmount(rc.Amount)
	return r
}

// World exposes the state, for inspection and tests.
func (sim *Simulation) World() *world.State { return sim.state }

// Clock exposes the simulation clock.
func (sim *Simulation) Clock() *clock.Clock { return sim.clk }

// State reports the scheduler lifecycle state.
func (sim *Simulation) State() RunState { return sim.runState }

// Run executes the loop until maxTicks have elapsed (negative: no limit) or
// ctx is cancelled. The final state is always flushed on the way out,
// interruption included. A simulation can only be run once.
func (sim *Simulation) Run(ctx context.Context, maxTicks int64) error {
	switch sim.runState {
	case Running:
		return fmt.Errorf("engine: already running")
	case Stopped:
		return fmt.Errorf("engine: already ran")
	}
	sim.runState = Running
	slog.Info("simulation running", "max_ticks", maxTicks)

	for n := int64(0); maxTicks < 0 || n < maxTicks; n++ {
		select {
		case <-ctx.Done():
			slog.Info("simulation interrupted", "tick", sim.clk.Ticks())
			return sim.stop()
		default:
		}
		sim.step()
	}
	return sim.stop()
}

func (sim *Simulation) stop() error {
	sim.runState = Stopped
	err := sim.save()
	for _, sys := range sim.state.Systems() {
		if sd, ok := sys.(world.ShutdownSystem); ok {
			sd.Shutdown(sim.state)
		}
	}
	slog.Info("simulation stopped",
		"tick", sim.clk.Ticks(),
		"at", sim.clk.Now().Format(config.TimeLayout))
	if err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}

// step advances one tick. Modifier renewal runs before expiry cleanup so a
// renewed effect never gaps, then systems dispatch in registration order with
// per-system failure isolation.
func (sim *Simulation) step() {
	now := sim.clk.Advance()

	for _, child := range sim.state.CheckModifierRepeats(now) {
		if err := sim.db.InsertModifier(child); err != nil {
			slog.Error("persist renewed modifier failed", "modifier", child.ID, "error", err)
		}
		slog.Info("modifier renewed",
			"modifier", child.ID, "parent", child.ParentID, "name", child.Name,
			"start_year", child.StartYear, "end_year", child.EndYear)
	}

	for _, id := range sim.state.CleanupExpiredModifiers(now.Year()) {
		slog.Info("modifier expired", "modifier", id, "year", now.Year())
	}

	for _, sys := range sim.state.Systems() {
		if err := runSystem(sys, sim.state, now); err != nil {
			slog.Error("system failed",
				"system", sys.ID(), "tick", sim.clk.Ticks(), "error", err)
		}
	}

	if sim.clk.Ticks()%sim.cfg.Simulation.SaveEveryTicks == 0 {
		if err := sim.save(); err != nil {
			// Retried on the next save cycle.
			slog.Error("periodic save failed", "tick", sim.clk.Ticks(), "error", err)
		}
	}

	for i := range sim.logs {
		lc := &sim.logs[i]
		if cadence.Due(lc.freq, lc.rate, lc.last, now) {
			lc.last = now
			sim.logSnapshot(lc.name, now)
		}
	}
}

// runSystem isolates one system dispatch: both error returns and panics are
// contained so one misbehaving system cannot take the tick down.
func runSystem(sys world.System, s *world.State, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sys.OnTick(s, now)
}

func (sim *Simulation) save() error {
	return sim.db.SaveWorldState(sim.state, sim.clk.Now(), sim.clk.Ticks(), sim.snapshot)
}
