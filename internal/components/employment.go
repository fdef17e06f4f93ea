package components

import (
	"encoding/json"
	"time"

	"github.com/talgya/civitas/internal/world"
)

// Employment records the job an entity holds.
type Employment struct {
	JobID           string    `json:"job_id"`
	Kind            string    `json:"kind"`
	Wage            float64   `json:"wage"`
	PaymentResource string    `json:"payment_resource"`
	Since           time.Time `json:"since"`
	LastPaid        time.Time `json:"last_paid"`
}

func (e *Employment) TypeName() string { return "Employment" }

func init() {
	world.RegisterComponent("Employment", func(data []byte) (world.Component, error) {
		var c Employment
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
