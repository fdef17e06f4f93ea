package systems

import (
	"fmt"
	"time"

	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/resolver"
	"github.com/talgya/civitas/internal/world"
)

// Fulfillment turns needs above threshold into resource requirements, routes
// them through the requirement resolver, and records pressure for whatever
// went unmet. Shortfalls are outcomes, never errors.
type Fulfillment struct {
	cfg config.FulfillConfig
	res *resolver.Resolver
}

// NewFulfillment creates the needs fulfillment system.
func NewFulfillment() *Fulfillment { return &Fulfillment{} }

func (f *Fulfillment) ID() string { return "NeedsFulfillment" }

func (f *Fulfillment) Init(s *world.State, cfg *config.Config) error {
	res, err := resolver.New(cfg.Resolver)
	if err != nil {
		return fmt.Errorf("fulfillment: %w", err)
	}
	f.cfg = cfg.Fulfill
	f.res = res
	return nil
}

func (f *Fulfillment) OnTick(s *world.State, now time.Time) error {
	for _, e := range s.QueryByComponents("Needs") {
		c, _ := e.Get("Needs")
		needs := c.(*components.Needs)

		if needs.Hunger >= f.cfg.HungerThreshold {
			r := f.res.Resolve(s, e, f.cfg.FoodResource, f.cfg.FoodPerUnit, now)
			if r.Fulfilled > 0 {
				needs.ReduceHunger(r.Fulfilled / f.cfg.FoodPerUnit)
			}
			f.recordUnmet(e, r)
		}
		if needs.Thirst >= f.cfg.ThirstThreshold {
			r := f.res.Resolve(s, e, f.cfg.WaterResource, f.cfg.WaterPerUnit, now)
			if r.Fulfilled > 0 {
				needs.ReduceThirst(r.Fulfilled / f.cfg.WaterPerUnit)
			}
			f.recordUnmet(e, r)
		}

		// Rest needs no resource; it recovers only when the body is not
		// fighting hunger or thirst.
		if needs.Rest >= f.cfg.RestThreshold &&
			needs.Hunger < f.cfg.HungerThreshold &&
			needs.Thirst < f.cfg.ThirstThreshold {
			needs.RecoverRest(f.cfg.RestRecovery)
		}
	}
	return nil
}

func (f *Fulfillment) recordUnmet(e *world.Entity, r resolver.Resolution) {
	unmet := r.Unmet()
	if unmet <= 0 {
		return
	}
	if c, ok := e.Get("Pressure"); ok {
		c.(*components.Pressure).Record(r.ResourceID, unmet)
	}
}
