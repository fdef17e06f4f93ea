package systems

import (
	"time"

	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/world"
)

// Needs advances physiological deprivation by one hour for every entity that
// has needs.
type Needs struct{}

// NewNeeds creates the needs decay system.
func NewNeeds() *Needs { return &Needs{} }

func (n *Needs) ID() string { return "Needs" }

func (n *Needs) Init(s *world.State, cfg *config.Config) error { return nil }

func (n *Needs) OnTick(s *world.State, now time.Time) error {
	for _, e := range s.QueryByComponents("Needs") {
		c, _ := e.Get("Needs")
		c.(*components.Needs).Decay()
	}
	return nil
}
