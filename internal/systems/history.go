package systems

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/persistence"
	"github.com/talgya/civitas/internal/world"
)

// ResourceHistory appends per-resource analytics rows on its cadence. It
// holds its own database handle so analytics writes stay off the scheduler's
// save path.
type ResourceHistory struct {
	db    *persistence.DB
	freq  cadence.Frequency
	rate  int
	start time.Time
	last  time.Time
}

// NewResourceHistory creates the resource analytics system.
func NewResourceHistory() *ResourceHistory { return &ResourceHistory{} }

func (h *ResourceHistory) ID() string { return "ResourceHistory" }

func (h *ResourceHistory) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.History.Frequency)
	if err != nil {
		return fmt.Errorf("resource history: %w", err)
	}
	db, err := persistence.Open(cfg.Simulation.DBPath)
	if err != nil {
		return fmt.Errorf("resource history: %w", err)
	}
	h.db = db
	h.freq = freq
	h.rate = cfg.History.Rate
	h.start = cfg.Simulation.StartTime()
	h.last = time.Time{}
	return nil
}

func (h *ResourceHistory) OnTick(s *world.State, now time.Time) error {
	if !cadence.Due(h.freq, h.rate, h.last, now) {
		return nil
	}
	h.last = now

	tick := tickAt(h.start, now)
	samples := make([]persistence.ResourceSample, 0, len(s.Resources()))
	for _, r := range s.Resources() {
		samples = append(samples, persistence.ResourceSample{
			RecordedAt: now,
			Tick:       tick,
			ResourceID: r.ID,
			Amount:     r.Amount(),
			Status:     string(r.Status()),
		})
	}
	if err := h.db.AppendResourceHistory(samples); err != nil {
		return fmt.Errorf("resource history: %w", err)
	}
	return nil
}

func (h *ResourceHistory) Shutdown(s *world.State) {
	if h.db != nil {
		if err := h.db.Close(); err != nil {
			slog.Warn("resource history close failed", "error", err)
		}
	}
}

// EntityHistory appends population aggregates on its cadence.
type EntityHistory struct {
	db    *persistence.DB
	freq  cadence.Frequency
	rate  int
	start time.Time
	last  time.Time
}

// NewEntityHistory creates the population analytics system.
func NewEntityHistory() *EntityHistory { return &EntityHistory{} }

func (h *EntityHistory) ID() string { return "EntityHistory" }

func (h *EntityHistory) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.History.Frequency)
	if err != nil {
		return fmt.Errorf("entity history: %w", err)
	}
	db, err := persistence.Open(cfg.Simulation.DBPath)
	if err != nil {
		return fmt.Errorf("entity history: %w", err)
	}
	h.db = db
	h.freq = freq
	h.rate = cfg.History.Rate
	h.start = cfg.Simulation.StartTime()
	h.last = time.Time{}
	return nil
}

func (h *EntityHistory) OnTick(s *world.State, now time.Time) error {
	if !cadence.Due(h.freq, h.rate, h.last, now) {
		return nil
	}
	h.last = now

	sample := persistence.EntitySample{RecordedAt: now, Tick: tickAt(h.start, now)}
	var healthSum, hungerSum, thirstSum, restSum float64
	var healthN, needsN int
	for _, e := range s.Entities() {
		sample.Population++
		if e.Has("Employment") {
			sample.Employed++
		}
		if c, ok := e.Get("Health"); ok {
			healthSum += c.(*components.Health).Current
			healthN++
		}
		if c, ok := e.Get("Needs"); ok {
			n := c.(*components.Needs)
			hungerSum += n.Hunger
			thirstSum += n.Thirst
			restSum += n.Rest
			needsN++
		}
		if c, ok := e.Get("Wealth"); ok {
			for _, v := range c.(*components.Wealth).Balances {
				sample.TotalWealth += v
			}
		}
	}
	if healthN > 0 {
		sample.AvgHealth = healthSum / float64(healthN)
	}
	if needsN > 0 {
		sample.AvgHunger = hungerSum / float64(needsN)
		sample.AvgThirst = thirstSum / float64(needsN)
		sample.AvgRest = restSum / float64(needsN)
	}

	if err := h.db.AppendEntityHistory(sample); err != nil {
		return fmt.Errorf("entity history: %w", err)
	}
	return nil
}

func (h *EntityHistory) Shutdown(s *world.State) {
	if h.db != nil {
		if err := h.db.Close(); err != nil {
			slog.Warn("entity history close failed", "error", err)
		}
	}
}

// JobHistory appends labor market aggregates on its cadence: headcount per
// job kind, average wages, open positions.
type JobHistory struct {
	db        *persistence.DB
	positions []config.JobPosition
	freq      cadence.Frequency
	rate      int
	start     time.Time
	last      time.Time
}

// NewJobHistory creates the labor market analytics system.
func NewJobHistory() *JobHistory { return &JobHistory{} }

func (h *JobHistory) ID() string { return "JobHistory" }

func (h *JobHistory) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.History.Frequency)
	if err != nil {
		return fmt.Errorf("job history: %w", err)
	}
	db, err := persistence.Open(cfg.Simulation.DBPath)
	if err != nil {
		return fmt.Errorf("job history: %w", err)
	}
	h.db = db
	h.positions = cfg.Jobs.Positions
	h.freq = freq
	h.rate = cfg.History.Rate
	h.start = cfg.Simulation.StartTime()
	h.last = time.Time{}
	return nil
}

func (h *JobHistory) OnTick(s *world.State, now time.Time) error {
	if !cadence.Due(h.freq, h.rate, h.last, now) {
		return nil
	}
	h.last = now

	sample := persistence.JobSample{
		RecordedAt: now,
		Tick:       tickAt(h.start, now),
		ByKind:     make(map[string]int),
	}
	wageSums := make(map[string]float64)
	filled := make(map[string]int)
	for _, e := range s.Entities() {
		sample.Population++
		c, ok := e.Get("Employment")
		if !ok {
			continue
		}
		emp := c.(*components.Employment)
		sample.Employed++
		sample.ByKind[emp.Kind]++
		wageSums[emp.Kind] += emp.Wage
		sample.TotalWages += emp.Wage
		filled[emp.JobID]++
	}
	if sample.Population > 0 {
		sample.EmploymentRate = float64(sample.Employed) / float64(sample.Population) * 100
	}
	sample.AvgWageByKind = make(map[string]float64, len(wageSums))
	for kind, sum := range wageSums {
		sample.AvgWageByKind[kind] = sum / float64(sample.ByKind[kind])
	}
	sample.Openings = make(map[string]int, len(h.positions))
	for _, pos := range h.positions {
		open := pos.Openings - filled[pos.ID]
		if open < 0 {
			open = 0
		}
		sample.Openings[pos.ID] = open
	}

	if err := h.db.AppendJobHistory(sample); err != nil {
		return fmt.Errorf("job history: %w", err)
	}
	return nil
}

func (h *JobHistory) Shutdown(s *world.State) {
	if h.db != nil {
		if err := h.db.Close(); err != nil {
			slog.Warn("job history close failed", "error", err)
		}
	}
}

// tickAt recovers the tick number from the wall positions of start and now;
// one tick is one hour.
func tickAt(start, now time.Time) int64 {
	return int64(now.Sub(start) / time.Hour)
}
