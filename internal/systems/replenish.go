package systems

import (
	"log/slog"
	"time"

	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/world"
)

// Replenish tops up non-finite resources at their configured cadence, with
// any resource-targeted modifiers folded into the rate.
type Replenish struct{}

// NewReplenish creates the replenishment system.
func NewReplenish() *Replenish { return &Replenish{} }

func (rp *Replenish) ID() string { return "ResourceReplenishment" }

func (rp *Replenish) Init(s *world.State, cfg *config.Config) error { return nil }

func (rp *Replenish) OnTick(s *world.State, now time.Time) error {
	for _, r := range s.Resources() {
		if !r.ShouldReplenish(now) {
			continue
		}
		r.MarkReplenished(now)
		rate := modifier.Fold(r.ReplenishRate, s.ModifiersForResource(r.ID, now.Year()))
		if rate <= 0 {
			continue
		}
		added := r.Add(rate)
		slog.Debug("resource replenished",
			"resource", r.ID, "added", added, "amount", r.Amount(), "status", r.Status())
	}
	return nil
}
