package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Inventory holds an entity's private stock of resources, keyed by resource
// id.
type Inventory struct {
	Items map[string]float64 `json:"items"`
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{Items: make(map[string]float64)}
}

func (inv *Inventory) TypeName() string { return "Inventory" }

// Amount returns the stock of one resource.
func (inv *Inventory) Amount(resourceID string) float64 {
	return inv.Items[resourceID]
}

// Add grows the stock of one resource.
func (inv *Inventory) Add(resourceID string, v float64) {
	if v <= 0 {
		return
	}
	if inv.Items == nil {
		inv.Items = make(map[string]float64)
	}
	inv.Items[resourceID] += v
}

// Take removes up to v of one resource and returns the amount actually taken.
func (inv *Inventory) Take(resourceID string, v float64) float64 {
	if v <= 0 {
		return 0
	}
	have := inv.Items[resourceID]
	if have <= 0 {
		return 0
	}
	taken := v
	if taken > have {
		taken = have
	}
	inv.Items[resourceID] = have - taken
	return taken
}

func init() {
	world.RegisterComponent("Inventory", func(data []byte) (world.Component, error) {
		var c Inventory
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
