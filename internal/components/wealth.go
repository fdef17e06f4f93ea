package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Wealth holds an entity's payment resources (money and anything else that
// can settle a market cost), keyed by resource id.
type Wealth struct {
	Balances map[string]float64 `json:"balances"`
}

// NewWealth creates an empty wealth record.
func NewWealth() *Wealth {
	return &Wealth{Balances: make(map[string]float64)}
}

func (w *Wealth) TypeName() string { return "Wealth" }

// Balance returns the holding of one payment resource.
func (w *Wealth) Balance(resourceID string) float64 {
	return w.Balances[resourceID]
}

// Deposit grows a balance.
func (w *Wealth) Deposit(resourceID string, v float64) {
	if v <= 0 {
		return
	}
	if w.Balances == nil {
		w.Balances = make(map[string]float64)
	}
	w.Balances[resourceID] += v
}

// Withdraw removes up to v from a balance and returns the amount actually
// withdrawn.
func (w *Wealth) Withdraw(resourceID string, v float64) float64 {
	if v <= 0 {
		return 0
	}
	have := w.Balances[resourceID]
	if have <= 0 {
		return 0
	}
	taken := v
	if taken > have {
		taken = have
	}
	w.Balances[resourceID] = have - taken
	return taken
}

func init() {
	world.RegisterComponent("Wealth", func(data []byte) (world.Component, error) {
		var c Wealth
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
