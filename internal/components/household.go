package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Household links an entity to the household entity whose shared stock it may
// draw from.
type Household struct {
	HouseholdID string `json:"household_id"`
}

func (h *Household) TypeName() string { return "Household" }

func init() {
	world.RegisterComponent("Household", func(data []byte) (world.Component, error) {
		var c Household
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
