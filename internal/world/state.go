package world

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/talgya/civitas/internal/modifier"
)

// State owns everything the simulation mutates: entities, resource pools,
// modifiers, the system registry, and the single RNG. All collections keep
// insertion order alongside their lookup maps so identical seeds produce
// bit-identical runs; bare map iteration would not.
type State struct {
	seed int64
	rng  *rand.Rand

	entities    map[string]*Entity
	entityOrder []string

	resources     map[string]*Resource
	resourceOrder []string

	modifiers      map[int64]*modifier.Modifier
	modifierOrder  []int64
	nextModifierID int64

	systems     map[string]System
	systemOrder []string
}

// NewState creates an empty state seeded for deterministic randomness.
func NewState(seed int64) *State {
	return &State{
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
		entities:  make(map[string]*Entity),
		resources: make(map[string]*Resource),
		modifiers: make(map[int64]*modifier.Modifier),
		systems:   make(map[string]System),

		nextModifierID: 1,
	}
}

// Seed returns the seed the RNG was created with.
func (s *State) Seed() int64 { return s.seed }

// Float64 draws from the shared RNG in [0, 1).
func (s *State) Float64() float64 { return s.rng.Float64() }

// Uniform draws from the shared RNG in [min, max).
func (s *State) Uniform(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

// Intn draws an integer in [0, n) from the shared RNG.
func (s *State) Intn(n int) int { return s.rng.Intn(n) }

// AddEntity registers an entity. A duplicate id is a setup error.
func (s *State) AddEntity(e *Entity) error {
	if _, ok := s.entities[e.ID()]; ok {
		return fmt.Errorf("world: duplicate entity id %q", e.ID())
	}
	s.entities[e.ID()] = e
	s.entityOrder = append(s.entityOrder, e.ID())
	return nil
}

// RemoveEntity deletes an entity, reporting whether it existed.
func (s *State) RemoveEntity(id string) bool {
	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	for i, eid := range s.entityOrder {
		if eid == id {
			s.entityOrder = append(s.entityOrder[:i], s.entityOrder[i+1:]...)
			break
		}
	}
	return true
}

// Entity looks up an entity by id.
func (s *State) Entity(id string) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Entities returns all entities in insertion order.
func (s *State) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.entityOrder))
	for _, id := range s.entityOrder {
		out = append(out, s.entities[id])
	}
	return out
}

// QueryByComponents returns entities carrying every named component type, in
// insertion order.
func (s *State) QueryByComponents(types ...string) []*Entity {
	var out []*Entity
	for _, id := range s.entityOrder {
		if e := s.entities[id]; e.Has(types...) {
			out = append(out, e)
		}
	}
	return out
}

// AddResource registers a resource pool. A duplicate id is a setup error.
func (s *State) AddResource(r *Resource) error {
	if _, ok := s.resources[r.ID]; ok {
		return fmt.Errorf("world: duplicate resource id %q", r.ID)
	}
	s.resources[r.ID] = r
	s.resourceOrder = append(s.resourceOrder, r.ID)
	return nil
}

// Resource looks up a pool by id.
func (s *State) Resource(id string) (*Resource, bool) {
	r, ok := s.resources[id]
	return r, ok
}

// Resources returns all pools in insertion order.
func (s *State) Resources() []*Resource {
	out := make([]*Resource, 0, len(s.resourceOrder))
	for _, id := range s.resourceOrder {
		out = append(out, s.resources[id])
	}
	return out
}

// AddModifier validates and registers a modifier, assigning the next id when
// the caller left it zero.
func (s *State) AddModifier(m *modifier.Modifier) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == 0 {
		m.ID = s.nextModifierID
		s.nextModifierID++
	} else if m.ID >= s.nextModifierID {
		s.nextModifierID = m.ID + 1
	}
	if _, ok := s.modifiers[m.ID]; ok {
		return fmt.Errorf("world: duplicate modifier id %d", m.ID)
	}
	s.modifiers[m.ID] = m
	s.modifierOrder = append(s.modifierOrder, m.ID)
	return nil
}

// RemoveModifier deletes a modifier outright. Normal expiry deactivates
// instead; this exists for operator tooling.
func (s *State) RemoveModifier(id int64) bool {
	if _, ok := s.modifiers[id]; !ok {
		return false
	}
	delete(s.modifiers, id)
	for i, mid := range s.modifierOrder {
		if mid == id {
			s.modifierOrder = append(s.modifierOrder[:i], s.modifierOrder[i+1:]...)
			break
		}
	}
	return true
}

// Modifier looks up a modifier by id.
func (s *State) Modifier(id int64) (*modifier.Modifier, bool) {
	m, ok := s.modifiers[id]
	return m, ok
}

// Modifiers returns every modifier, active or not, in insertion order.
func (s *State) Modifiers() []*modifier.Modifier {
	out := make([]*modifier.Modifier, 0, len(s.modifierOrder))
	for _, id := range s.modifierOrder {
		out = append(out, s.modifiers[id])
	}
	return out
}

// ActiveModifiers returns modifiers active in the given year, in insertion
// order.
func (s *State) ActiveModifiers(year int) []*modifier.Modifier {
	var out []*modifier.Modifier
	for _, id := range s.modifierOrder {
		if m := s.modifiers[id]; m.ActiveAt(year) {
			out = append(out, m)
		}
	}
	return out
}

// ModifiersForResource returns modifiers active in year targeting a resource.
func (s *State) ModifiersForResource(resourceID string, year int) []*modifier.Modifier {
	var out []*modifier.Modifier
	for _, id := range s.modifierOrder {
		m := s.modifiers[id]
		if m.ActiveAt(year) && m.TargetKind == modifier.TargetResource && m.TargetID == resourceID {
			out = append(out, m)
		}
	}
	return out
}

// ModifiersForSystem returns modifiers active in year targeting a system.
func (s *State) ModifiersForSystem(systemID string, year int) []*modifier.Modifier {
	var out []*modifier.Modifier
	for _, id := range s.modifierOrder {
		m := s.modifiers[id]
		if m.ActiveAt(year) && m.TargetKind == modifier.TargetSystem && m.TargetID == systemID {
			out = append(out, m)
		}
	}
	return out
}

// CheckModifierRepeats runs renewal draws for every repeating modifier whose
// boundary is due at now, registers the children, and returns them so the
// scheduler can persist and log them. Runs before expiry cleanup each tick so
// a renewed effect never gaps.
func (s *State) CheckModifierRepeats(now time.Time) []*modifier.Modifier {
	var created []*modifier.Modifier
	for _, id := range s.modifierOrder {
		m := s.modifiers[id]
		if !m.RepeatDue(now) {
			continue
		}
		if s.rng.Float64() >= m.RepeatProbability {
			continue
		}
		child := m.Renew(0, now)
		if err := s.AddModifier(child); err != nil {
			// Renew preserves parent fields already validated at add time.
			continue
		}
		created = append(created, child)
	}
	return created
}

// CleanupExpiredModifiers deactivates modifiers whose window has closed and
// returns their ids. Rows are kept so renewal chains stay auditable.
func (s *State) CleanupExpiredModifiers(year int) []int64 {
	var deactivated []int64
	for _, id := range s.modifierOrder {
		m := s.modifiers[id]
		if m.Active && m.Expired(year) {
			m.Active = false
			deactivated = append(deactivated, id)
		}
	}
	return deactivated
}

// NextModifierID returns the id the next modifier will get.
func (s *State) NextModifierID() int64 { return s.nextModifierID }

// SetNextModifierID restores the id counter from persistence.
func (s *State) SetNextModifierID(id int64) {
	if id > s.nextModifierID {
		s.nextModifierID = id
	}
}

// RegisterSystem adds a system to the dispatch order. A duplicate id is a
// setup error.
func (s *State) RegisterSystem(sys System) error {
	if _, ok := s.systems[sys.ID()]; ok {
		return fmt.Errorf("world: duplicate system id %q", sys.ID())
	}
	s.systems[sys.ID()] = sys
	s.systemOrder = append(s.systemOrder, sys.ID())
	return nil
}

// System looks up a registered system by id.
func (s *State) System(id string) (System, bool) {
	sys, ok := s.systems[id]
	return sys, ok
}

// Systems returns registered systems in registration order, which is also the
// per-tick dispatch order.
func (s *State) Systems() []System {
	out := make([]System, 0, len(s.systemOrder))
	for _, id := range s.systemOrder {
		out = append(out, s.systems[id])
	}
	return out
}
