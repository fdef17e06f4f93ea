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

// Mortality doubles every mortalityDoublingYears past the peak age.
const mortalityDoublingYears = 5.0

// Death removes entities whose health reached zero and rolls age mortality on
// its cadence. A dead entity's wealth flows back into the matching global
// pools.
type Death struct {
	cfg       config.DeathConfig
	freq      cadence.Frequency
	lastCheck time.Time
}

// NewDeath creates the death system.
func NewDeath() *Death { return &Death{} }

func (d *Death) ID() string { return "Death" }

func (d *Death) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.Death.Frequency)
	if err != nil {
		return fmt.Errorf("death: %w", err)
	}
	d.cfg = cfg.Death
	d.freq = freq
	d.lastCheck = time.Time{}
	return nil
}

func (d *Death) OnTick(s *world.State, now time.Time) error {
	for _, e := range s.QueryByComponents("Health") {
		c, _ := e.Get("Health")
		if c.(*components.Health).Dead() {
			d.die(s, e, "health", now)
		}
	}

	if !cadence.Due(d.freq, d.cfg.Rate, d.lastCheck, now) {
		return nil
	}
	d.lastCheck = now

	mods := s.ModifiersForSystem(d.ID(), now.Year())
	for _, e := range s.QueryByComponents("Age") {
		c, _ := e.Get("Age")
		years := c.(*components.Age).Years(now)
		p := modifier.Fold(d.ageProbability(years), mods)
		if p < 0 {
			p = 0
		}
		if p > d.cfg.MaxProb {
			p = d.cfg.MaxProb
		}
		if s.Float64() < p {
			d.die(s, e, "age", now)
		}
	}
	return nil
}

// ageProbability rises linearly up to the peak age, then doubles every few
// years past it.
func (d *Death) ageProbability(years int) float64 {
	if years <= 0 {
		return 0
	}
	peak := d.cfg.PeakAge
	if peak < 1 {
		peak = 1
	}
	if years <= peak {
		return d.cfg.BaseAnnualProb * float64(years) / float64(peak)
	}
	return d.cfg.BaseAnnualProb * math.Pow(2, float64(years-peak)/mortalityDoublingYears)
}

func (d *Death) die(s *world.State, e *world.Entity, cause string, now time.Time) {
	if c, ok := e.Get("Wealth"); ok {
		for resourceID, amount := range c.(*components.Wealth).Balances {
			pool, ok := s.Resource(resourceID)
			if !ok {
				slog.Warn("dead entity held a resource with no pool",
					"entity", e.ID(), "resource", resourceID, "amount", amount)
				continue
			}
			pool.Add(amount)
		}
	}
	s.RemoveEntity(e.ID())
	slog.Debug("entity died", "entity", e.ID(), "cause", cause, "at", now)
}
