package world

import (
	"time"

	"github.com/talgya/civitas/internal/config"
)

// System is a simulation behavior driven once per tick. Systems communicate
// only through the shared State and must tolerate entities missing the
// components they care about.
type System interface {
	// ID is the stable registration name, also used in config and persistence.
	ID() string
	// Init prepares the system before the first tick (and again on resume).
	Init(s *State, cfg *config.Config) error
	// OnTick runs the system for the tick that just advanced to now.
	OnTick(s *State, now time.Time) error
}

// ShutdownSystem is implemented by systems holding external handles that need
// releasing when the run stops.
type ShutdownSystem interface {
	Shutdown(s *State)
}
