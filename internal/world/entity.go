package world

import (
	"sort"

	"github.com/google/uuid"
)

// Entity is an id plus at most one component per type.
type Entity struct {
	id         string
	components map[string]Component
}

// NewEntity creates an entity; an empty id gets a fresh uuid.
func NewEntity(id string) *Entity {
	if id == "" {
		id = uuid.NewString()
	}
	return &Entity{id: id, components: make(map[string]Component)}
}

// ID returns the entity id.
func (e *Entity) ID() string { return e.id }

// Set attaches a component, replacing any existing one of the same type.
func (e *Entity) Set(c Component) {
	e.components[c.TypeName()] = c
}

// Get returns the component of the named type.
func (e *Entity) Get(name string) (Component, bool) {
	c, ok := e.components[name]
	return c, ok
}

// Has reports whether the entity carries every named component type.
func (e *Entity) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := e.components[n]; !ok {
			return false
		}
	}
	return true
}

// Remove detaches the component of the named type.
func (e *Entity) Remove(name string) bool {
	if _, ok := e.components[name]; !ok {
		return false
	}
	delete(e.components, name)
	return true
}

// ComponentTypes returns attached type names sorted, so serialization and
// iteration are stable.
func (e *Entity) ComponentTypes() []string {
	names := make([]string, 0, len(e.components))
	for n := range e.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
