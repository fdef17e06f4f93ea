// Package components defines the component types entities carry. Each type
// registers its decoder with the world registry at init, keyed by a stable
// type name that persisted data depends on.
package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Needs tracks physiological deprivation on a 0..1 scale per need, where 0 is
// fully satisfied and 1 is critical. Rates are per simulated hour and vary
// per entity.
type Needs struct {
	Hunger float64 `json:"hunger"`
	Thirst float64 `json:"thirst"`
	Rest   float64 `json:"rest"`

	HungerRate float64 `json:"hunger_rate"`
	ThirstRate float64 `json:"thirst_rate"`
	RestRate   float64 `json:"rest_rate"`
}

func (n *Needs) TypeName() string { return "Needs" }

// Decay advances every need by one hour of its rate.
func (n *Needs) Decay() {
	n.Hunger = clamp01(n.Hunger + n.HungerRate)
	n.Thirst = clamp01(n.Thirst + n.ThirstRate)
	n.Rest = clamp01(n.Rest + n.RestRate)
}

// ReduceHunger lowers hunger by the given fraction of a full meal.
func (n *Needs) ReduceHunger(fraction float64) {
	n.Hunger = clamp01(n.Hunger - fraction)
}

// ReduceThirst lowers thirst by the given fraction of a full drink.
func (n *Needs) ReduceThirst(fraction float64) {
	n.Thirst = clamp01(n.Thirst - fraction)
}

// RecoverRest lowers rest deprivation by the given recovery amount.
func (n *Needs) RecoverRest(amount float64) {
	n.Rest = clamp01(n.Rest - amount)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func init() {
	world.RegisterComponent("Needs", func(data []byte) (world.Component, error) {
		var c Needs
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
