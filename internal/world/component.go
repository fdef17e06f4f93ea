package world

import (
	"encoding/json"
	"fmt"
)

// Component is a typed bag of entity data. Implementations are plain structs
// that serialize themselves through encoding/json.
type Component interface {
	// TypeName returns the stable name used for registry lookup and
	// persistence. It never changes once data has been written.
	TypeName() string
}

// DecodeFunc rebuilds a component from its JSON payload.
type DecodeFunc func(data []byte) (Component, error)

var componentRegistry = map[string]DecodeFunc{}

// RegisterComponent installs a decoder for a component type name. Called from
// package init; a duplicate name is a programming error and panics.
func RegisterComponent(name string, decode DecodeFunc) {
	if _, ok := componentRegistry[name]; ok {
		panic(fmt.Sprintf("world: component type %q registered twice", name))
	}
	componentRegistry[name] = decode
}

// DecodeComponent rebuilds a component of the named type from JSON.
func DecodeComponent(name string, data []byte) (Component, error) {
	decode, ok := componentRegistry[name]
	if !ok {
		return nil, fmt.Errorf("world: unknown component type %q", name)
	}
	c, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("world: decode component %q: %w", name, err)
	}
	return c, nil
}

// EncodeComponent serializes a component to its JSON payload.
func EncodeComponent(c Component) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("world: encode component %q: %w", c.TypeName(), err)
	}
	return data, nil
}
