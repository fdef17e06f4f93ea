package systems

import (
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

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Seed = config.Seed{Value: 42}
	require.NoError(t, cfg.Validate())
	return cfg
}

func testWorld(t *testing.T, cfg *config.Config) *world.State {
	t.Helper()
	s := world.NewState(cfg.Simulation.Seed.Value)
	for _, rc := range cfg.Resources {
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
		require.NoError(t, s.AddResource(r))
	}
	return s
}

func TestSpawnInitialPopulation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Spawn.InitialPopulation = 10
	s := testWorld(t, cfg)

	sp := NewSpawn()
	require.NoError(t, sp.Init(s, cfg))

	people := s.QueryByComponents("Needs", "Health", "Age", "Inventory", "Wealth")
	require.Len(t, people, 10)

	c, _ := people[0].Get("Needs")
	needs := c.(*components.Needs)
	assert.Greater(t, needs.HungerRate, 0.0)
	assert.NotEqual(t, cfg.Needs.HungerRate, needs.HungerRate, "metabolism varies per entity")

	// Re-init on a populated world must not spawn again.
	require.NoError(t, sp.Init(s, cfg))
	assert.Len(t, s.QueryByComponents("Needs"), 10)
}

func TestSpawnOnCadence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Spawn.InitialPopulation = 0
	cfg.Spawn.Frequency = "daily"
	cfg.Spawn.Rate = 1
	cfg.Spawn.Count = 3
	s := testWorld(t, cfg)

	sp := NewSpawn()
	require.NoError(t, sp.Init(s, cfg))

	midnight := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sp.OnTick(s, midnight))
	assert.Len(t, s.Entities(), 3)

	// Same day, later hour: nothing happens.
	require.NoError(t, sp.OnTick(s, midnight.Add(5*time.Hour)))
	assert.Len(t, s.Entities(), 3)

	require.NoError(t, sp.OnTick(s, midnight.AddDate(0, 0, 1)))
	assert.Len(t, s.Entities(), 6)
}

func TestSpawnCountScaledByModifiers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Spawn.InitialPopulation = 0
	cfg.Spawn.Frequency = "daily"
	cfg.Spawn.Rate = 1
	cfg.Spawn.Count = 4
	s := testWorld(t, cfg)

	require.NoError(t, s.AddModifier(&modifier.Modifier{
		Name:       "baby boom",
		TargetKind: modifier.TargetSystem,
		TargetID:   "HumanSpawn",
		Kind:       modifier.Percentage,
		Magnitude:  0.5,
		Direction:  modifier.Increase,
		StartYear:  2024,
		EndYear:    2026,
		Active:     true,
	}))
	require.NoError(t, s.AddModifier(&modifier.Modifier{
		Name:       "exodus",
		TargetKind: modifier.TargetSystem,
		TargetID:   "HumanSpawn",
		Kind:       modifier.Direct,
		Magnitude:  6,
		Direction:  modifier.Decrease,
		StartYear:  2024,
		EndYear:    2026,
		Active:     true,
	}))

	sp := NewSpawn()
	require.NoError(t, sp.Init(s, cfg))

	// 4 * 1.5 - 6 = 0, rounded and floored at zero.
	midnight := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sp.OnTick(s, midnight))
	assert.Empty(t, s.Entities())

	require.True(t, s.RemoveModifier(2))
	require.NoError(t, sp.OnTick(s, midnight.AddDate(0, 0, 1)))
	assert.Len(t, s.Entities(), 6, "boom scales the spawn count")
}

func TestNeedsSystemDecays(t *testing.T) {
	cfg := testConfig(t)
	s := testWorld(t, cfg)
	e := world.NewEntity("")
	e.Set(&components.Needs{HungerRate: 0.1, ThirstRate: 0.2, RestRate: 0.3})
	require.NoError(t, s.AddEntity(e))

	sys := NewNeeds()
	require.NoError(t, sys.Init(s, cfg))
	require.NoError(t, sys.OnTick(s, time.Now()))

	c, _ := e.Get("Needs")
	needs := c.(*components.Needs)
	assert.InDelta(t, 0.1, needs.Hunger, 1e-9)
	assert.InDelta(t, 0.2, needs.Thirst, 1e-9)
	assert.InDelta(t, 0.3, needs.Rest, 1e-9)
}

func TestFulfillmentEatsAndRecordsPressure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Resolver.Sources = []config.SourceConfig{
		{ID: "own-food", Kind: "inventory", ResourceID: "food", Priority: 1},
		{ID: "own-water", Kind: "inventory", ResourceID: "water", Priority: 1},
	}
	s := testWorld(t, cfg)

	e := world.NewEntity("")
	e.Set(&components.Needs{Hunger: 0.8, Thirst: 0.1})
	inv := components.NewInventory()
	inv.Add("food", 10)
	e.Set(inv)
	e.Set(components.NewPressure())
	require.NoError(t, s.AddEntity(e))

	sys := NewFulfillment()
	require.NoError(t, sys.Init(s, cfg))
	require.NoError(t, sys.OnTick(s, time.Now()))

	c, _ := e.Get("Needs")
	needs := c.(*components.Needs)
	assert.Less(t, needs.Hunger, 0.8, "ate from inventory")
	assert.InDelta(t, 9.0, inv.Amount("food"), 1e-9)

	pc, _ := e.Get("Pressure")
	assert.InDelta(t, 0.0, pc.(*components.Pressure).Level(), 1e-9)

	// Drain the inventory: hunger stays and pressure builds.
	inv.Take("food", 9)
	needs.Hunger = 0.9
	require.NoError(t, sys.OnTick(s, time.Now()))
	assert.InDelta(t, 0.9, needs.Hunger, 1e-9)
	assert.Greater(t, pc.(*components.Pressure).Level(), 0.0)
}

func TestRestRecoversOnlyWhenFed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Resolver.Sources = []config.SourceConfig{
		{ID: "own-food", Kind: "inventory", ResourceID: "food", Priority: 1},
		{ID: "own-water", Kind: "inventory", ResourceID: "water", Priority: 1},
	}
	s := testWorld(t, cfg)

	e := world.NewEntity("")
	needs := &components.Needs{Rest: 0.9}
	e.Set(needs)
	require.NoError(t, s.AddEntity(e))

	sys := NewFulfillment()
	require.NoError(t, sys.Init(s, cfg))
	require.NoError(t, sys.OnTick(s, time.Now()))
	assert.InDelta(t, 0.9-cfg.Fulfill.RestRecovery, needs.Rest, 1e-9)

	needs.Hunger = 0.9
	before := needs.Rest
	require.NoError(t, sys.OnTick(s, time.Now()))
	assert.InDelta(t, before, needs.Rest, 1e-9, "no recovery while starving")
}

func TestHealthDamageAndHeal(t *testing.T) {
	cfg := testConfig(t)
	s := testWorld(t, cfg)

	e := world.NewEntity("")
	e.Set(&components.Needs{Hunger: 1.0})
	health := components.NewHealth(100)
	e.Set(health)
	require.NoError(t, s.AddEntity(e))

	sys := NewHealth()
	require.NoError(t, sys.Init(s, cfg))
	require.NoError(t, sys.OnTick(s, time.Now()))
	assert.Less(t, health.Current, 100.0)

	c, _ := e.Get("Needs")
	c.(*components.Needs).Hunger = 0
	hurt := health.Current
	require.NoError(t, sys.OnTick(s, time.Now()))
	assert.Greater(t, health.Current, hurt, "heals when needs are met")
}

func TestDeathByHealthReturnsWealth(t *testing.T) {
	cfg := testConfig(t)
	s := testWorld(t, cfg)
	money, _ := s.Resource("money")
	poolBefore := money.Amount()

	e := world.NewEntity("doomed")
	e.Set(&components.Health{Current: 0, Max: 100})
	w := components.NewWealth()
	w.Deposit("money", 75)
	e.Set(w)
	require.NoError(t, s.AddEntity(e))

	sys := NewDeath()
	require.NoError(t, sys.Init(s, cfg))
	require.NoError(t, sys.OnTick(s, time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)))

	_, ok := s.Entity("doomed")
	assert.False(t, ok)
	assert.InDelta(t, poolBefore+75, money.Amount(), 1e-9)
}

func TestDeathAgeModifierRaisesMortality(t *testing.T) {
	cfg := testConfig(t)
	cfg.Death.BaseAnnualProb = 0.0
	s := testWorld(t, cfg)

	// A direct +1 modifier targeting the death system forces certain death.
	require.NoError(t, s.AddModifier(&modifier.Modifier{
		Name:       "plague",
		TargetKind: modifier.TargetSystem,
		TargetID:   "Death",
		Kind:       modifier.Direct,
		Magnitude:  1.0,
		Direction:  modifier.Increase,
		StartYear:  2024,
		EndYear:    2026,
		Active:     true,
	}))

	e := world.NewEntity("elder")
	e.Set(&components.Age{Born: time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, s.AddEntity(e))

	sys := NewDeath()
	require.NoError(t, sys.Init(s, cfg))

	// Yearly cadence: first period start fires immediately.
	newYear := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sys.OnTick(s, newYear))

	_, ok := s.Entity("elder")
	assert.False(t, ok, "probability folded to max and capped")
}

func TestJobsAssignAndPay(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.Positions = []config.JobPosition{
		{ID: "farm", Kind: "farmer", Openings: 1, Wage: 10, PaymentResource: "money"},
	}
	cfg.Jobs.PayFrequency = "daily"
	cfg.Jobs.PayRate = 1
	s := testWorld(t, cfg)

	adult := world.NewEntity("adult")
	adult.Set(&components.Age{Born: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)})
	adult.Set(components.NewWealth())
	require.NoError(t, s.AddEntity(adult))

	kid := world.NewEntity("kid")
	kid.Set(&components.Age{Born: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, s.AddEntity(kid))

	extra := world.NewEntity("extra")
	extra.Set(&components.Age{Born: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, s.AddEntity(extra))

	sys := NewJobs()
	require.NoError(t, sys.Init(s, cfg))

	midnight := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sys.OnTick(s, midnight))

	assert.True(t, adult.Has("Employment"))
	assert.False(t, kid.Has("Employment"), "minors stay unemployed")
	assert.False(t, extra.Has("Employment"), "no openings left")

	// Payday ran on the same boundary tick.
	money, _ := s.Resource("money")
	wc, _ := adult.Get("Wealth")
	assert.InDelta(t, 10.0, wc.(*components.Wealth).Balance("money"), 1e-9)
	assert.InDelta(t, 100000.0-10.0, money.Amount(), 1e-9)
}

func TestReplenishAppliesModifierFold(t *testing.T) {
	cfg := testConfig(t)
	s := testWorld(t, cfg)
	food, _ := s.Resource("food")
	before := food.Amount()

	require.NoError(t, s.AddModifier(&modifier.Modifier{
		Name:       "blight",
		TargetKind: modifier.TargetResource,
		TargetID:   "food",
		Kind:       modifier.Percentage,
		Magnitude:  0.5,
		Direction:  modifier.Decrease,
		StartYear:  2024,
		EndYear:    2026,
		Active:     true,
	}))

	sys := NewReplenish()
	require.NoError(t, sys.Init(s, cfg))

	midnight := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sys.OnTick(s, midnight))

	// Daily rate 50 halved by the blight.
	assert.InDelta(t, before+25, food.Amount(), 1e-9)

	// Finite money never replenishes.
	money, _ := s.Resource("money")
	assert.InDelta(t, 100000.0, money.Amount(), 1e-9)
}

func TestConsumptionAndProductionFlows(t *testing.T) {
	cfg := testConfig(t)
	cfg.Consumption.Flows = []config.Flow{
		{ResourceID: "food", Rate: 100, Frequency: "daily", Every: 1},
	}
	cfg.Production.Flows = []config.Flow{
		{ResourceID: "food", Rate: 40, Frequency: "daily", Every: 1},
	}
	s := testWorld(t, cfg)
	food, _ := s.Resource("food")
	before := food.Amount()

	cons := NewConsumption()
	prod := NewProduction()
	require.NoError(t, cons.Init(s, cfg))
	require.NoError(t, prod.Init(s, cfg))

	midnight := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cons.OnTick(s, midnight))
	require.NoError(t, prod.OnTick(s, midnight))
	assert.InDelta(t, before-100+40, food.Amount(), 1e-9)

	// Off-boundary ticks are no-ops.
	require.NoError(t, cons.OnTick(s, midnight.Add(time.Hour)))
	assert.InDelta(t, before-100+40, food.Amount(), 1e-9)
}

func TestFlowsApplyResourceModifiers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Consumption.Flows = []config.Flow{
		{ResourceID: "food", Rate: 100, Frequency: "hourly", Every: 1},
	}
	cfg.Production.Flows = []config.Flow{
		{ResourceID: "water", Rate: 40, Frequency: "hourly", Every: 1},
	}
	s := testWorld(t, cfg)

	for _, target := range []string{"food", "water"} {
		require.NoError(t, s.AddModifier(&modifier.Modifier{
			Name:       "heat wave " + target,
			TargetKind: modifier.TargetResource,
			TargetID:   target,
			Kind:       modifier.Percentage,
			Magnitude:  0.5,
			Direction:  modifier.Increase,
			StartYear:  2024,
			EndYear:    2026,
			Active:     true,
		}))
	}

	food, _ := s.Resource("food")
	water, _ := s.Resource("water")
	foodBefore := food.Amount()
	waterBefore := water.Amount()

	cons := NewConsumption()
	prod := NewProduction()
	require.NoError(t, cons.Init(s, cfg))
	require.NoError(t, prod.Init(s, cfg))

	at := time.Date(2024, time.June, 1, 14, 0, 0, 0, time.UTC)
	require.NoError(t, cons.OnTick(s, at))
	require.NoError(t, prod.OnTick(s, at))

	// Each flow is scaled by the modifiers targeting its own resource.
	assert.InDelta(t, foodBefore-150, food.Amount(), 1e-9)
	assert.InDelta(t, waterBefore+60, water.Amount(), 1e-9)
}
