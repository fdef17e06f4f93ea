package components

import (
	"encoding/json"
	"time"

	"github.com/talgya/civitas/internal/world"
)

// Age records when an entity was born, in simulation time.
type Age struct {
	Born time.Time `json:"born"`
}

func (a *Age) TypeName() string { return "Age" }

// Years returns whole years of age at now.
func (a *Age) Years(now time.Time) int {
	years := now.Year() - a.Born.Year()
	anniversary := a.Born.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

func init() {
	world.RegisterComponent("Age", func(data []byte) (world.Component, error) {
		var c Age
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
