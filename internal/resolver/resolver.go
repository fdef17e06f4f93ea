// Package resolver routes entity resource requirements through prioritized
// sources. Insufficiency is an outcome, never an error: a resolution reports
// how much was fulfilled and the shortfall feeds pressure, not failure paths.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/world"
)

// Kind names a fulfillment strategy.
type Kind string

const (
	FromInventory  Kind = "inventory"
	FromHousehold  Kind = "household"
	FromMarket     Kind = "market"
	FromProduction Kind = "production"
)

// Conditions gate whether a source is available to a given entity.
type Conditions struct {
	RequiredComponent string
	EmploymentKind    string
	RequireHousehold  bool
}

// Cost is a per-unit charge (market) or input (production) in some resource.
type Cost struct {
	ResourceID string
	PerUnit    float64
}

// Source is one way to fulfill a requirement for a resource.
type Source struct {
	ID         string
	Kind       Kind
	ResourceID string
	Priority   int
	Conditions Conditions
	Cost       []Cost
	Inputs     []Cost
}

// Resolution is the outcome of one requirement. Partial fulfillment counts as
// success; Unmet is what pressure accounting consumes.
type Resolution struct {
	Success    bool
	SourceID   string
	ResourceID string
	Requested  float64
	Fulfilled  float64
	Reason     string
	ResolvedAt time.Time
}

// Unmet returns the shortfall.
func (r Resolution) Unmet() float64 {
	if d := r.Requested - r.Fulfilled; d > 0 {
		return d
	}
	return 0
}

// Resolver holds sources grouped per resource, ordered by ascending priority.
type Resolver struct {
	sources map[string][]*Source
}

// New builds a resolver from config. Unknown source kinds are configuration
// errors.
func New(cfg config.ResolverConfig) (*Resolver, error) {
	r := &Resolver{sources: make(map[string][]*Source)}
	for i, sc := range cfg.Sources {
		kind := Kind(sc.Kind)
		switch kind {
		case FromInventory, FromHousehold, FromMarket, FromProduction:
		default:
			return nil, fmt.Errorf("resolver: source %d (%q): unknown kind %q", i, sc.ID, sc.Kind)
		}
		src := &Source{
			ID:         sc.ID,
			Kind:       kind,
			ResourceID: sc.ResourceID,
			Priority:   sc.Priority,
			Conditions: Conditions{
				RequiredComponent: sc.Conditions.RequiredComponent,
				EmploymentKind:    sc.Conditions.EmploymentKind,
				RequireHousehold:  sc.Conditions.RequireHousehold,
			},
		}
		for _, c := range sc.Cost {
			src.Cost = append(src.Cost, Cost{ResourceID: c.ResourceID, PerUnit: c.PerUnit})
		}
		for _, c := range sc.Inputs {
			src.Inputs = append(src.Inputs, Cost{ResourceID: c.ResourceID, PerUnit: c.PerUnit})
		}
		r.sources[src.ResourceID] = append(r.sources[src.ResourceID], src)
	}
	for _, group := range r.sources {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority < group[j].Priority
		})
	}
	return r, nil
}

// Sources returns the configured sources for a resource in priority order.
func (r *Resolver) Sources(resourceID string) []*Source {
	return r.sources[resourceID]
}

// Resolve tries each source for the resource in priority order; the first one
// yielding a nonzero amount wins and no sources are combined. With no sources
// configured, it falls back to a direct draw from the matching global pool,
// which keeps minimal configurations alive.
func (r *Resolver) Resolve(s *world.State, e *world.Entity, resourceID string, amount float64, now time.Time) Resolution {
	res := Resolution{ResourceID: resourceID, Requested: amount, ResolvedAt: now}
	if amount <= 0 {
		res.Success = true
		return res
	}

	group := r.sources[resourceID]
	if len(group) == 0 {
		return r.resolveFromPool(s, res)
	}

	for _, src := range group {
		if !r.available(s, e, src) {
			continue
		}
		fulfilled := r.draw(s, e, src, amount)
		if fulfilled > 0 {
			res.Success = true
			res.SourceID = src.ID
			res.Fulfilled = fulfilled
			return res
		}
	}
	res.Reason = "no source could fulfill"
	return res
}

func (r *Resolver) resolveFromPool(s *world.State, res Resolution) Resolution {
	pool, ok := s.Resource(res.ResourceID)
	if !ok {
		res.Reason = "no such resource"
		return res
	}
	taken := pool.Consume(res.Requested)
	if taken <= 0 {
		res.Reason = "global pool empty"
		return res
	}
	res.Success = true
	res.SourceID = "world"
	res.Fulfilled = taken
	return res
}

func (r *Resolver) available(s *world.State, e *world.Entity, src *Source) bool {
	c := src.Conditions
	if c.RequiredComponent != "" && !e.Has(c.RequiredComponent) {
		return false
	}
	if c.RequireHousehold && !e.Has("Household") {
		return false
	}
	if c.EmploymentKind != "" {
		emp, ok := e.Get("Employment")
		if !ok {
			return false
		}
		if emp.(*components.Employment).Kind != c.EmploymentKind {
			return false
		}
	}
	return true
}

func (r *Resolver) draw(s *world.State, e *world.Entity, src *Source, amount float64) float64 {
	switch src.Kind {
	case FromInventory:
		return r.drawInventory(e, src.ResourceID, amount)
	case FromHousehold:
		return r.drawHousehold(s, e, src.ResourceID, amount)
	case FromMarket:
		return r.drawMarket(s, e, src, amount)
	case FromProduction:
		return r.drawProduction(e, src, amount)
	}
	return 0
}

func (r *Resolver) drawInventory(e *world.Entity, resourceID string, amount float64) float64 {
	c, ok := e.Get("Inventory")
	if !ok {
		return 0
	}
	return c.(*components.Inventory).Take(resourceID, amount)
}

func (r *Resolver) drawHousehold(s *world.State, e *world.Entity, resourceID string, amount float64) float64 {
	hc, ok := e.Get("Household")
	if !ok {
		return 0
	}
	home, ok := s.Entity(hc.(*components.Household).HouseholdID)
	if !ok {
		return 0
	}
	return r.drawInventory(home, resourceID, amount)
}

// drawMarket buys from the global pool: fulfillment is bound by the pool, the
// requested amount, and what the entity can pay for; the cost is charged only
// on the fulfilled amount.
func (r *Resolver) drawMarket(s *world.State, e *world.Entity, src *Source, amount float64) float64 {
	pool, ok := s.Resource(src.ResourceID)
	if !ok {
		return 0
	}
	wc, ok := e.Get("Wealth")
	if !ok {
		return 0
	}
	wealth := wc.(*components.Wealth)

	affordable := amount
	for _, c := range src.Cost {
		if c.PerUnit <= 0 {
			continue
		}
		units := wealth.Balance(c.ResourceID) / c.PerUnit
		if units < affordable {
			affordable = units
		}
	}
	if affordable > pool.Amount() {
		affordable = pool.Amount()
	}
	if affordable <= 0 {
		return 0
	}
	taken := pool.Consume(affordable)
	for _, c := range src.Cost {
		wealth.Withdraw(c.ResourceID, taken*c.PerUnit)
	}
	return taken
}

// drawProduction is full or nothing: either every input for the whole amount
// is in the entity's inventory, or nothing is consumed and nothing is made.
// The output is minted into the inventory, where it stays.
func (r *Resolver) drawProduction(e *world.Entity, src *Source, amount float64) float64 {
	ic, ok := e.Get("Inventory")
	if !ok {
		return 0
	}
	inv := ic.(*components.Inventory)
	for _, in := range src.Inputs {
		if inv.Amount(in.ResourceID) < in.PerUnit*amount {
			return 0
		}
	}
	for _, in := range src.Inputs {
		inv.Take(in.ResourceID, in.PerUnit*amount)
	}
	inv.Add(src.ResourceID, amount)
	return amount
}
