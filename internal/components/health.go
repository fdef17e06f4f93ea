package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Health tracks an entity's condition. Zero current health means death; the
// death system does the removal.
type Health struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

// NewHealth creates a health record at full condition.
func NewHealth(max float64) *Health {
	return &Health{Current: max, Max: max}
}

func (h *Health) TypeName() string { return "Health" }

// Damage lowers current health, floored at zero.
func (h *Health) Damage(v float64) {
	if v <= 0 {
		return
	}
	h.Current -= v
	if h.Current < 0 {
		h.Current = 0
	}
}

// Heal raises current health, capped at max.
func (h *Health) Heal(v float64) {
	if v <= 0 {
		return
	}
	h.Current += v
	if h.Current > h.Max {
		h.Current = h.Max
	}
}

// Dead reports whether health has reached zero.
func (h *Health) Dead() bool { return h.Current <= 0 }

func init() {
	world.RegisterComponent("Health", func(data []byte) (world.Component, error) {
		var c Health
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
