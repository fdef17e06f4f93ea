// Package systems implements the simulation behaviors dispatched each tick:
// population lifecycle, needs and their fulfillment, employment, and resource
// flows. Systems communicate only through the world state and draw all
// randomness from its RNG.
package systems

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/world"
)

const fullHealth = 100.0

// Spawn creates the initial population and keeps adding entities on its
// cadence.
type Spawn struct {
	cfg       config.SpawnConfig
	needs     config.NeedsConfig
	freq      cadence.Frequency
	lastSpawn time.Time
}

// NewSpawn creates the spawn system.
func NewSpawn() *Spawn { return &Spawn{} }

func (sp *Spawn) ID() string { return "HumanSpawn" }

// Init seeds the initial population on a fresh world. A resumed world
// already has its entities, so seeding is skipped when anyone is alive.
func (sp *Spawn) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.Spawn.Frequency)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	sp.cfg = cfg.Spawn
	sp.needs = cfg.Needs
	sp.freq = freq
	sp.lastSpawn = time.Time{}

	if len(s.QueryByComponents("Needs")) > 0 {
		return nil
	}
	start := cfg.Simulation.StartTime()
	for i := 0; i < sp.cfg.InitialPopulation; i++ {
		if err := sp.spawnOne(s, start); err != nil {
			return err
		}
	}
	slog.Info("initial population created", "count", sp.cfg.InitialPopulation)
	return nil
}

func (sp *Spawn) OnTick(s *world.State, now time.Time) error {
	if !cadence.Due(sp.freq, sp.cfg.Rate, sp.lastSpawn, now) {
		return nil
	}
	sp.lastSpawn = now

	// Modifiers targeting the system scale the spawn count.
	effective := modifier.Fold(float64(sp.cfg.Count), s.ModifiersForSystem(sp.ID(), now.Year()))
	count := int(math.Round(effective))
	if count < 0 {
		count = 0
	}
	for i := 0; i < count; i++ {
		if err := sp.spawnOne(s, now); err != nil {
			return err
		}
	}
	if count > 0 {
		slog.Debug("entities spawned", "count", count, "at", now)
	}
	return nil
}

func (sp *Spawn) spawnOne(s *world.State, now time.Time) error {
	e := world.NewEntity("")

	years := sp.cfg.AgeMin
	if sp.cfg.AgeMax > sp.cfg.AgeMin {
		years += s.Intn(sp.cfg.AgeMax - sp.cfg.AgeMin + 1)
	}
	born := now.AddDate(-years, 0, -s.Intn(365))
	e.Set(&components.Age{Born: born})

	// Metabolism varies per entity; rates are fixed at birth.
	vary := func(base float64) float64 {
		return base * s.Uniform(1-sp.needs.Variance, 1+sp.needs.Variance)
	}
	e.Set(&components.Needs{
		HungerRate: vary(sp.needs.HungerRate),
		ThirstRate: vary(sp.needs.ThirstRate),
		RestRate:   vary(sp.needs.RestRate),
	})

	e.Set(components.NewHealth(fullHealth))

	inv := components.NewInventory()
	inv.Add("food", s.Uniform(sp.cfg.FoodMin, sp.cfg.FoodMax))
	inv.Add("water", s.Uniform(sp.cfg.WaterMin, sp.cfg.WaterMax))
	e.Set(inv)

	wealth := components.NewWealth()
	wealth.Deposit("money", s.Uniform(sp.cfg.MoneyMin, sp.cfg.MoneyMax))
	e.Set(wealth)

	e.Set(components.NewPressure())
	e.Set(components.NewSkills())

	return s.AddEntity(e)
}
