package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/world"
)

type noopSystem struct{ id string }

func (s noopSystem) ID() string                              { return s.id }
func (s noopSystem) Init(*world.State, *config.Config) error { return nil }
func (s noopSystem) OnTick(*world.State, time.Time) error    { return nil }

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func buildState(t *testing.T) *world.State {
	t.Helper()
	s := world.NewState(42)

	capacity := 10000.0
	water := world.NewResource("water", "Water", 8000)
	water.Capacity = &capacity
	water.ReplenishRate = 200
	water.ReplenishFreq = cadence.Daily
	water.ReplenishEvery = 1
	water.MarkReplenished(time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.AddResource(water))

	money := world.NewResource("money", "Money", 100000)
	money.Finite = true
	require.NoError(t, s.AddResource(money))

	require.NoError(t, s.AddModifier(&modifier.Modifier{
		Name:                "drought",
		TargetKind:          modifier.TargetResource,
		TargetID:            "water",
		Kind:                modifier.Percentage,
		Magnitude:           0.3,
		Direction:           modifier.Decrease,
		StartYear:           2024,
		EndYear:             2026,
		Active:              true,
		RepeatProbability:   0.5,
		RepeatFrequency:     cadence.Yearly,
		RepeatDurationYears: 2,
	}))

	e := world.NewEntity("person-1")
	e.Set(&components.Needs{Hunger: 0.4, Thirst: 0.2, Rest: 0.6,
		HungerRate: 0.02, ThirstRate: 0.03, RestRate: 0.04})
	inv := components.NewInventory()
	inv.Add("food", 12.5)
	e.Set(inv)
	e.Set(components.NewHealth(100))
	require.NoError(t, s.AddEntity(e))

	require.NoError(t, s.RegisterSystem(noopSystem{"Needs"}))
	require.NoError(t, s.RegisterSystem(noopSystem{"Health"}))
	return s
}

func TestLoadWithoutSave(t *testing.T) {
	db := openTestDB(t)

	has, err := db.HasWorldState()
	require.NoError(t, err)
	assert.False(t, has)

	_, err = db.LoadWorldState()
	assert.ErrorIs(t, err, ErrNoWorldState)
}

func TestWorldStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := buildState(t)

	now := time.Date(2024, time.March, 14, 15, 0, 0, 0, time.UTC)
	snapshot := []byte("simulation:\n  start: \"2024-01-01 00:00\"\n")
	require.NoError(t, db.SaveWorldState(s, now, 1767, snapshot))

	has, err := db.HasWorldState()
	require.NoError(t, err)
	assert.True(t, has)

	loaded, err := db.LoadWorldState()
	require.NoError(t, err)

	assert.True(t, now.Equal(loaded.Now))
	assert.Equal(t, int64(1767), loaded.Ticks)
	assert.Equal(t, snapshot, loaded.Snapshot)
	assert.Equal(t, []string{"Needs", "Health"}, loaded.SystemIDs)
	assert.Equal(t, int64(42), loaded.State.Seed())
	assert.Equal(t, s.NextModifierID(), loaded.State.NextModifierID())

	water, ok := loaded.State.Resource("water")
	require.True(t, ok)
	assert.InDelta(t, 8000.0, water.Amount(), 1e-9)
	require.NotNil(t, water.Capacity)
	assert.InDelta(t, 10000.0, *water.Capacity, 1e-9)
	assert.Equal(t, cadence.Daily, water.ReplenishFreq)
	assert.False(t, water.LastReplenished().IsZero())

	money, ok := loaded.State.Resource("money")
	require.True(t, ok)
	assert.True(t, money.Finite)
	assert.True(t, money.LastReplenished().IsZero())

	mods := loaded.State.Modifiers()
	require.Len(t, mods, 1)
	m := mods[0]
	assert.Equal(t, "drought", m.Name)
	assert.Equal(t, modifier.TargetResource, m.TargetKind)
	assert.InDelta(t, 0.5, m.RepeatProbability, 1e-9)
	assert.Equal(t, 2, m.RepeatDurationYears)

	e, ok := loaded.State.Entity("person-1")
	require.True(t, ok)
	nc, ok := e.Get("Needs")
	require.True(t, ok)
	needs := nc.(*components.Needs)
	assert.InDelta(t, 0.4, needs.Hunger, 1e-9)
	assert.InDelta(t, 0.03, needs.ThirstRate, 1e-9)
	ic, ok := e.Get("Inventory")
	require.True(t, ok)
	assert.InDelta(t, 12.5, ic.(*components.Inventory).Amount("food"), 1e-9)
}

func TestSaveReplacesPrevious(t *testing.T) {
	db := openTestDB(t)
	s := buildState(t)
	now := time.Date(2024, time.March, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveWorldState(s, now, 100, []byte("a")))

	s.RemoveEntity("person-1")
	water, _ := s.Resource("water")
	water.Consume(1000)
	require.NoError(t, db.SaveWorldState(s, now.Add(time.Hour), 101, []byte("a")))

	loaded, err := db.LoadWorldState()
	require.NoError(t, err)
	assert.Empty(t, loaded.State.Entities())
	got, _ := loaded.State.Resource("water")
	assert.InDelta(t, 7000.0, got.Amount(), 1e-9)
	assert.Equal(t, int64(101), loaded.Ticks)
}

func TestInsertModifierAndRows(t *testing.T) {
	db := openTestDB(t)

	m := &modifier.Modifier{
		ID:         5,
		Name:       "famine",
		TargetKind: modifier.TargetResource,
		TargetID:   "food",
		Kind:       modifier.Direct,
		Magnitude:  100,
		Direction:  modifier.Decrease,
		StartYear:  2024,
		EndYear:    2025,
		Active:     true,
		ParentID:   2,
	}
	require.NoError(t, db.InsertModifier(m))

	inactive := *m
	inactive.ID = 6
	inactive.Active = false
	require.NoError(t, db.InsertModifier(&inactive))

	all, err := db.ModifierRows(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ParentID)

	active, err := db.ModifierRows(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(5), active[0].ID)
}

func TestHistoryAppendAndQuery(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.AppendResourceHistory([]ResourceSample{
		{RecordedAt: at, Tick: 24, ResourceID: "food", Amount: 4900, Status: "abundant"},
		{RecordedAt: at, Tick: 24, ResourceID: "water", Amount: 7800, Status: "sufficient"},
	}))
	require.NoError(t, db.AppendResourceHistory([]ResourceSample{
		{RecordedAt: at.AddDate(0, 0, 1), Tick: 48, ResourceID: "food", Amount: 4800, Status: "abundant"},
	}))

	food, err := db.ResourceHistory("food", 10)
	require.NoError(t, err)
	require.Len(t, food, 2)
	assert.Equal(t, int64(48), food[0].Tick, "newest first")

	all, err := db.AllResourceHistory()
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(24), all[0].Tick)

	require.NoError(t, db.AppendEntityHistory(EntitySample{
		RecordedAt: at, Tick: 24, Population: 50, Employed: 20,
		AvgHealth: 92.5, AvgHunger: 0.3, AvgThirst: 0.2, AvgRest: 0.4,
		TotalWealth: 6200,
	}))
	sample, err := db.LatestEntitySample()
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.Equal(t, 50, sample.Population)
	assert.InDelta(t, 92.5, sample.AvgHealth, 1e-9)
}

func TestMetaAndModifierCounter(t *testing.T) {
	db := openTestDB(t)
	s := buildState(t)
	now := time.Date(2024, time.March, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveWorldState(s, now, 10, []byte("a")))

	meta, err := db.Meta()
	require.NoError(t, err)
	assert.True(t, now.Equal(meta.Datetime))
	assert.Equal(t, int64(10), meta.Ticks)
	assert.Equal(t, int64(42), meta.RngSeed)

	id, err := db.NextModifierID()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	require.NoError(t, db.BumpModifierCounter(7))
	id, err = db.NextModifierID()
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}
