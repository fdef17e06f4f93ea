package components

import (
	"encoding/json"

	"github.com/talgya/civitas/internal/world"
)

// Skills holds an entity's core traits and learned job skills on a 0..1
// scale.
type Skills struct {
	Core map[string]float64 `json:"core"`
	Job  map[string]float64 `json:"job"`
}

// NewSkills creates an empty skill set.
func NewSkills() *Skills {
	return &Skills{Core: make(map[string]float64), Job: make(map[string]float64)}
}

func (s *Skills) TypeName() string { return "Skills" }

// Level returns the job skill level for a kind of work.
func (s *Skills) Level(kind string) float64 { return s.Job[kind] }

// Improve raises a job skill toward 1 by the given amount.
func (s *Skills) Improve(kind string, v float64) {
	if v <= 0 {
		return
	}
	if s.Job == nil {
		s.Job = make(map[string]float64)
	}
	level := s.Job[kind] + v
	if level > 1 {
		level = 1
	}
	s.Job[kind] = level
}

func init() {
	world.RegisterComponent("Skills", func(data []byte) (world.Component, error) {
		var c Skills
		err := json.Unmarshal(data, &c)
		return &c, err
	})
}
