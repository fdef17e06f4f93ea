// Package modifier implements time-bounded effects on resources and systems:
// activation windows, percentage/direct arithmetic, ordered folding, and
// stochastic self-renewal at period boundaries.
package modifier

import (
	"fmt"
	"time"

	"github.com/talgya/civitas/internal/cadence"
)

// EffectKind selects the arithmetic a modifier applies.
type EffectKind string

const (
	Percentage EffectKind = "percentage"
	Direct     EffectKind = "direct"
)

// Direction selects whether the effect raises or lowers the base value.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// TargetKind names what a modifier attaches to.
type TargetKind string

const (
	TargetResource TargetKind = "resource"
	TargetSystem   TargetKind = "system"
)

// Modifier is a named effect active over [StartYear, EndYear). Expired
// modifiers are deactivated, never deleted, so renewal chains stay auditable.
type Modifier struct {
	ID         int64
	Name       string
	TargetKind TargetKind
	TargetID   string
	Kind       EffectKind
	Magnitude  float64
	Direction  Direction
	StartYear  int
	EndYear    int
	Active     bool

	// Self-renewal. A zero probability means the modifier never repeats.
	RepeatProbability   float64
	RepeatFrequency     cadence.Frequency
	RepeatRate          int
	RepeatDurationYears int

	// ParentID links a renewed modifier to the one it replaced; zero for
	// originals.
	ParentID int64
}

// Validate checks structural invariants. World state rejects invalid
// modifiers at add time.
func (m *Modifier) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("modifier: name is required")
	}
	if m.EndYear <= m.StartYear {
		return fmt.Errorf("modifier %q: end year %d must be after start year %d", m.Name, m.EndYear, m.StartYear)
	}
	switch m.Kind {
	case Percentage, Direct:
	default:
		return fmt.Errorf("modifier %q: unknown effect kind %q", m.Name, m.Kind)
	}
	switch m.Direction {
	case Increase, Decrease:
	default:
		return fmt.Errorf("modifier %q: unknown direction %q", m.Name, m.Direction)
	}
	switch m.TargetKind {
	case TargetResource, TargetSystem:
	default:
		return fmt.Errorf("modifier %q: unknown target kind %q", m.Name, m.TargetKind)
	}
	if m.RepeatProbability < 0 || m.RepeatProbability > 1 {
		return fmt.Errorf("modifier %q: repeat probability %v outside [0,1]", m.Name, m.RepeatProbability)
	}
	if m.RepeatProbability > 0 && !m.RepeatFrequency.Valid() {
		return fmt.Errorf("modifier %q: repeating modifier needs a valid frequency", m.Name)
	}
	return nil
}

// ActiveAt reports whether the modifier applies in the given year. The start
// year is inclusive, the end year exclusive.
func (m *Modifier) ActiveAt(year int) bool {
	return m.Active && m.StartYear <= year && year < m.EndYear
}

// Expired reports whether the modifier's window has closed.
func (m *Modifier) Expired(year int) bool {
	return year >= m.EndYear
}

// RepeatDue reports whether a renewal draw should happen at now: the modifier
// must repeat, be expired, and now must be the last tick of its repeat
// frequency's period.
func (m *Modifier) RepeatDue(now time.Time) bool {
	if m.RepeatProbability <= 0 {
		return false
	}
	if !m.Expired(now.Year()) {
		return false
	}
	return cadence.AtPeriodEnd(m.RepeatFrequency, now)
}

// Apply transforms base by this modifier's effect.
func (m *Modifier) Apply(base float64) float64 {
	switch m.Kind {
	case Percentage:
		if m.Direction == Increase {
			return base * (1 + m.Magnitude)
		}
		return base * (1 - m.Magnitude)
	case Direct:
		if m.Direction == Increase {
			return base + m.Magnitude
		}
		return base - m.Magnitude
	}
	return base
}

// Fold applies mods to base sequentially, left to right. Order matters for
// mixed percentage/direct chains, so callers must pass a stable ordering.
func Fold(base float64, mods []*Modifier) float64 {
	v := base
	for _, m := range mods {
		v = m.Apply(v)
	}
	return v
}

// Renew creates the successor of an expired modifier. The child starts at the
// parent's end year, bumped by one when the renewal check happens during that
// same year, and runs for RepeatDurationYears (or the parent's original
// duration when unset). The caller supplies the new id and persists the child
// before the parent is deactivated.
func (m *Modifier) Renew(id int64, now time.Time) *Modifier {
	start := m.EndYear
	if now.Year() == m.EndYear {
		start++
	}
	duration := m.RepeatDurationYears
	if duration <= 0 {
		duration = m.EndYear - m.StartYear
	}
	child := *m
	child.ID = id
	child.StartYear = start
	child.EndYear = start + duration
	child.Active = true
	child.ParentID = m.ID
	return &child
}
