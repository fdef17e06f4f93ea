package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Pressure accumulates unmet requirements per resource. The health system
// reads the aggregate level and relieves it once accounted for.
type Pressure struct {
	Unmet map[string]float64 `json:"unmet"`
}

// NewPressure creates an empty pressure record.
func NewPressure() *Pressure {
	return &Pressure{Unmet: make(map[string]float64)}
}

func (p *Pressure) TypeName() string { return "Pressure" }

// Record adds unmet demand for one resource.
func (p *Pressure) Record(resourceID string, amount float64) {
	if amount <= 0 {
		return
	}
	if p.Unmet == nil {
		p.Unmet = make(map[string]float64)
	}
	p.Unmet[resourceID] += amount
}

// Level returns the total unmet demand across resources.
func (p *Pressure) Level() float64 {
	var total float64
	for _, v := range p.Unmet {
		total += v
	}
	return total
}

// Relieve scales all unmet demand by factor (0 clears everything), dropping
// entries that fall below noise.
func (p *Pressure) Relieve(factor float64) {
	if factor < 0 {
		factor = 0
	}
	for id, v := range p.Unmet {
		v *= factor
		if v < 1e-9 {
			delete(p.Unmet, id)
			continue
		}
		p.Unmet[id] = v
	}
}

func init() {
	world.RegisterComponent("Pressure", func(data []byte) (world.Component, error) {
		var c Pressure
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
