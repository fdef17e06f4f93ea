package systems

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/world"
)

// flow is one configured baseline stream with its own cadence clock.
type flow struct {
	resourceID string
	rate       float64
	freq       cadence.Frequency
	every      int
	last       time.Time
}

func parseFlows(name string, cfg config.FlowConfig) ([]flow, error) {
	flows := make([]flow, 0, len(cfg.Flows))
	for i, fc := range cfg.Flows {
		freq, err := cadence.Parse(fc.Frequency)
		if err != nil {
			return nil, fmt.Errorf("%s: flow %d: %w", name, i, err)
		}
		flows = append(flows, flow{
			resourceID: fc.ResourceID,
			rate:       fc.Rate,
			freq:       freq,
			every:      fc.Every,
		})
	}
	return flows, nil
}

// Consumption drains resources by configured baseline flows, independent of
// entity demand. It warns once per resource when a flow first comes up short.
type Consumption struct {
	flows  []flow
	warned map[string]bool
}

// NewConsumption creates the baseline consumption system.
func NewConsumption() *Consumption { return &Consumption{} }

func (c *Consumption) ID() string { return "ResourceConsumption" }

func (c *Consumption) Init(s *world.State, cfg *config.Config) error {
	flows, err := parseFlows("resource_consumption", cfg.Consumption)
	if err != nil {
		return err
	}
	c.flows = flows
	c.warned = make(map[string]bool)
	return nil
}

func (c *Consumption) OnTick(s *world.State, now time.Time) error {
	for i := range c.flows {
		f := &c.flows[i]
		if !cadence.Due(f.freq, f.every, f.last, now) {
			continue
		}
		f.last = now
		r, ok := s.Resource(f.resourceID)
		if !ok {
			continue
		}
		want := modifier.Fold(f.rate, s.ModifiersForResource(f.resourceID, now.Year()))
		if want <= 0 {
			continue
		}
		taken := r.Consume(want)
		if taken < want && !c.warned[f.resourceID] {
			c.warned[f.resourceID] = true
			slog.Warn("resource cannot cover consumption",
				"resource", f.resourceID, "wanted", want, "taken", taken, "status", r.Status())
		}
	}
	return nil
}

// Production feeds resources by configured baseline flows.
type Production struct {
	flows []flow
}

// NewProduction creates the baseline production system.
func NewProduction() *Production { return &Production{} }

func (p *Production) ID() string { return "ResourceProduction" }

func (p *Production) Init(s *world.State, cfg *config.Config) error {
	flows, err := parseFlows("resource_production", cfg.Production)
	if err != nil {
		return err
	}
	p.flows = flows
	return nil
}

func (p *Production) OnTick(s *world.State, now time.Time) error {
	for i := range p.flows {
		f := &p.flows[i]
		if !cadence.Due(f.freq, f.every, f.last, now) {
			continue
		}
		f.last = now
		r, ok := s.Resource(f.resourceID)
		if !ok {
			continue
		}
		made := modifier.Fold(f.rate, s.ModifiersForResource(f.resourceID, now.Year()))
		if made <= 0 {
			continue
		}
		r.Add(made)
	}
	return nil
}
