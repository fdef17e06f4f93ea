package world

import (
	"time"

	"github.com/talgya/civitas/internal/cadence"
)

// Resource is a named global pool. Finite resources never replenish; capped
// resources never exceed capacity. Status is kept current by every mutation.
type Resource struct {
	ID             string
	Name           string
	Capacity       *float64
	Finite         bool
	ReplenishRate  float64
	ReplenishFreq  cadence.Frequency
	ReplenishEvery int

	amount          float64
	status          Status
	lastReplenished time.Time
}

// NewResource creates a pool with the given starting amount.
func NewResource(id, name string, amount float64) *Resource {
	r := &Resource{ID: id, Name: name}
	r.SetAmount(amount)
	return r
}

// Amount returns the current pool size.
func (r *Resource) Amount() float64 { return r.amount }

// Status returns the current classification.
func (r *Resource) Status() Status { return r.status }

// SetAmount overwrites the pool, clamping to capacity and floor zero.
func (r *Resource) SetAmount(v float64) {
	if v < 0 {
		v = 0
	}
	if r.Capacity != nil && v > *r.Capacity {
		v = *r.Capacity
	}
	r.amount = v
	r.status = StatusFor(r.amount, r.Capacity)
}

// Add grows the pool, capped at capacity, and returns the amount actually
// added.
func (r *Resource) Add(v float64) float64 {
	if v <= 0 {
		return 0
	}
	added := v
	if r.Capacity != nil && r.amount+v > *r.Capacity {
		added = *r.Capacity - r.amount
	}
	r.amount += added
	r.status = StatusFor(r.amount, r.Capacity)
	return added
}

// Consume removes up to v from the pool and returns the amount actually
// taken. Taking less than requested is normal, not an error.
func (r *Resource) Consume(v float64) float64 {
	if v <= 0 {
		return 0
	}
	taken := v
	if taken > r.amount {
		taken = r.amount
	}
	r.amount -= taken
	r.status = StatusFor(r.amount, r.Capacity)
	return taken
}

// ShouldReplenish reports whether a replenishment cycle is due at now.
func (r *Resource) ShouldReplenish(now time.Time) bool {
	if r.Finite || r.ReplenishRate <= 0 {
		return false
	}
	return cadence.Due(r.ReplenishFreq, r.ReplenishEvery, r.lastReplenished, now)
}

// MarkReplenished records the last replenishment time.
func (r *Resource) MarkReplenished(now time.Time) { r.lastReplenished = now }

// LastReplenished returns the last replenishment time (zero: never).
func (r *Resource) LastReplenished() time.Time { return r.lastReplenished }
