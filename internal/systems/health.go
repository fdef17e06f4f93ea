package systems

import (
	"time"

	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/world"
)

// Health converts sustained deprivation and pressure into damage, and heals
// slowly while every need is met.
type Health struct {
	cfg config.HealthConfig
}

// NewHealth creates the health system.
func NewHealth() *Health { return &Health{} }

func (h *Health) ID() string { return "Health" }

func (h *Health) Init(s *world.State, cfg *config.Config) error {
	h.cfg = cfg.Health
	return nil
}

func (h *Health) OnTick(s *world.State, now time.Time) error {
	for _, e := range s.QueryByComponents("Needs", "Health") {
		nc, _ := e.Get("Needs")
		hc, _ := e.Get("Health")
		needs := nc.(*components.Needs)
		health := hc.(*components.Health)

		hurting := false
		for _, level := range []float64{needs.Hunger, needs.Thirst, needs.Rest} {
			if level > h.cfg.NeedThreshold {
				hurting = true
				health.Damage(s.Uniform(h.cfg.DamageMin, h.cfg.DamageMax) * (level - h.cfg.NeedThreshold))
			}
		}

		if pc, ok := e.Get("Pressure"); ok {
			pressure := pc.(*components.Pressure)
			if level := pressure.Level(); level > 0 {
				hurting = true
				health.Damage(level * h.cfg.PressureDamage)
				// Pressure fades once it has been accounted for.
				pressure.Relieve(0.5)
			}
		}

		if !hurting {
			health.Heal(h.cfg.HealRate)
		}
	}
	return nil
}
