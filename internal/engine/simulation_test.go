package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/persistence"
	"github.com/talgya/civitas/internal/systems"
	"github.com/talgya/civitas/internal/world"
)

type recorder struct {
	id     string
	ticks  int
	fail   error
	panics bool
}

func (r *recorder) ID() string                              { return r.id }
func (r *recorder) Init(*world.State, *config.Config) error { return nil }

func (r *recorder) OnTick(*world.State, time.Time) error {
	r.ticks++
	if r.panics {
		panic("boom")
	}
	return r.fail
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Seed = config.Seed{Value: 42}
	cfg.Simulation.DBPath = filepath.Join(dir, "world.db")
	cfg.Systems = []string{"A", "B", "C"}
	cfg.Logging = nil
	require.NoError(t, cfg.Validate())
	return cfg
}

func openDB(t *testing.T, cfg *config.Config) *persistence.DB {
	t.Helper()
	db, err := persistence.Open(cfg.Simulation.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAdvancesAndStops(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	db := openDB(t, cfg)

	a := &recorder{id: "A"}
	sim, err := New(cfg, db, []world.System{a, &recorder{id: "B"}, &recorder{id: "C"}})
	require.NoError(t, err)
	assert.Equal(t, NotStarted, sim.State())

	require.NoError(t, sim.Run(context.Background(), 48))

	assert.Equal(t, Stopped, sim.State())
	assert.Equal(t, int64(48), sim.Clock().Ticks())
	assert.Equal(t, 48, a.ticks)
	expected := cfg.Simulation.StartTime().Add(48 * time.Hour)
	assert.True(t, expected.Equal(sim.Clock().Now()))

	err = sim.Run(context.Background(), 1)
	assert.Error(t, err, "a simulation runs once")
}

func TestUnknownSystemRejected(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	db := openDB(t, cfg)

	_, err := New(cfg, db, []world.System{&recorder{id: "A"}})
	assert.Error(t, err)
}

func TestSystemFailuresAreIsolated(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	db := openDB(t, cfg)

	failing := &recorder{id: "A", fail: errors.New("broken")}
	panicking := &recorder{id: "B", panics: true}
	healthy := &recorder{id: "C"}

	sim, err := New(cfg, db, []world.System{failing, panicking, healthy})
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background(), 24))

	assert.Equal(t, 24, failing.ticks)
	assert.Equal(t, 24, panicking.ticks)
	assert.Equal(t, 24, healthy.ticks, "failures upstream never starve later systems")
	assert.Equal(t, int64(24), sim.Clock().Ticks())
}

func TestInterruptFlushesState(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	db := openDB(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	blocker := &recorder{id: "A"}
	stop := &stopAfter{id: "B", after: 10, cancel: cancel}

	sim, err := New(cfg, db, []world.System{blocker, stop, &recorder{id: "C"}})
	require.NoError(t, err)
	require.NoError(t, sim.Run(ctx, -1))

	assert.Equal(t, Stopped, sim.State())
	assert.Equal(t, int64(10), sim.Clock().Ticks())

	loaded, err := db.LoadWorldState()
	require.NoError(t, err)
	assert.Equal(t, int64(10), loaded.Ticks, "final flush ran on interruption")
}

type stopAfter struct {
	id     string
	after  int
	seen   int
	cancel context.CancelFunc
}

func (s *stopAfter) ID() string                              { return s.id }
func (s *stopAfter) Init(*world.State, *config.Config) error { return nil }

func (s *stopAfter) OnTick(*world.State, time.Time) error {
	s.seen++
	if s.seen >= s.after {
		s.cancel()
	}
	return nil
}

func simSystems() []world.System {
	return []world.System{
		systems.NewSpawn(),
		systems.NewNeeds(),
		systems.NewFulfillment(),
		systems.NewHealth(),
		systems.NewDeath(),
		systems.NewJobs(),
		systems.NewReplenish(),
	}
}

func simConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Seed = config.Seed{Value: 7}
	cfg.Simulation.DBPath = filepath.Join(dir, "world.db")
	cfg.Systems = []string{
		"HumanSpawn", "Needs", "NeedsFulfillment", "Health", "Death",
		"Jobs", "ResourceReplenishment",
	}
	cfg.Spawn.InitialPopulation = 20
	cfg.Logging = nil
	require.NoError(t, cfg.Validate())
	return cfg
}

func worldFingerprint(s *world.State) map[string]float64 {
	fp := map[string]float64{
		"population": float64(len(s.Entities())),
	}
	for _, r := range s.Resources() {
		fp["resource."+r.ID] = r.Amount()
	}
	for _, e := range s.QueryByComponents("Needs") {
		c, _ := e.Get("Needs")
		n := c.(*components.Needs)
		fp["needs."+e.ID()] = n.Hunger + n.Thirst + n.Rest
	}
	return fp
}

func TestDeterminismAcrossRuns(t *testing.T) {
	run := func(t *testing.T) map[string]float64 {
		cfg := simConfig(t, t.TempDir())
		db := openDB(t, cfg)
		sim, err := New(cfg, db, simSystems())
		require.NoError(t, err)
		require.NoError(t, sim.Run(context.Background(), 24*14))
		return worldFingerprint(sim.World())
	}

	first := run(t)
	second := run(t)
	assert.Equal(t, first, second, "same seed and config give identical worlds")
}

func TestResumeContinuesRun(t *testing.T) {
	dir := t.TempDir()
	cfg := simConfig(t, dir)
	db := openDB(t, cfg)

	sim, err := New(cfg, db, simSystems())
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background(), 30))

	resumed, err := Resume(db, simSystems())
	require.NoError(t, err)
	assert.Equal(t, int64(30), resumed.Clock().Ticks())
	assert.Equal(t, sim.World().Seed(), resumed.World().Seed())
	assert.Len(t, resumed.World().Entities(), len(sim.World().Entities()))

	require.NoError(t, resumed.Run(context.Background(), 10))
	assert.Equal(t, int64(40), resumed.Clock().Ticks())
}

func TestResumeWithoutSave(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	db := openDB(t, cfg)

	_, err := Resume(db, nil)
	assert.ErrorIs(t, err, persistence.ErrNoWorldState)
}
