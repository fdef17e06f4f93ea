// Package config loads and validates the simulation configuration from YAML.
// The loaded document is normalized (random seeds resolved, defaults filled)
// and the normalized form is what gets persisted alongside the world, so a
// resumed run re-initializes its systems from exactly the values the original
// run used.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/entropy"
)

// TimeLayout is the datetime format used in config files.
const TimeLayout = "2006-01-02 15:04"

// Seed is an RNG seed that may be given as an integer or the literal string
// "RANDOM". Random seeds are resolved to a concrete value at load time so the
// run stays reproducible.
type Seed struct {
	Value  int64
	Random bool
}

func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	*s = Seed{}
	var raw string
	if err := node.Decode(&raw); err == nil && raw == "RANDOM" {
		s.Random = true
		return nil
	}
	var v int64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("rng_seed must be an integer or \"RANDOM\": %w", err)
	}
	s.Value = v
	return nil
}

// MarshalYAML always emits the resolved value; a persisted snapshot must not
// re-roll the seed on resume.
func (s Seed) MarshalYAML() (any, error) { return s.Value, nil }

// Config is the full simulation configuration.
type Config struct {
	Simulation  SimulationConfig `yaml:"simulation"`
	Resources   []ResourceConfig `yaml:"resources"`
	Systems     []string         `yaml:"systems"`
	Spawn       SpawnConfig      `yaml:"human_spawn"`
	Needs       NeedsConfig      `yaml:"needs"`
	Fulfill     FulfillConfig    `yaml:"needs_fulfillment"`
	Health      HealthConfig     `yaml:"health"`
	Death       DeathConfig      `yaml:"death"`
	Jobs        JobsConfig       `yaml:"jobs"`
	Consumption FlowConfig       `yaml:"resource_consumption"`
	Production  FlowConfig       `yaml:"resource_production"`
	Resolver    ResolverConfig   `yaml:"requirements"`
	History     HistoryConfig    `yaml:"history"`
	Logging     []LogCadence     `yaml:"logging"`
}

// SimulationConfig covers the clock, persistence and RNG.
type SimulationConfig struct {
	Start          string `yaml:"start"`
	Seed           Seed   `yaml:"rng_seed"`
	DBPath         string `yaml:"db_path"`
	SaveEveryTicks int64  `yaml:"save_every_ticks"`

	startTime time.Time
}

// StartTime returns the parsed start datetime. Valid after Validate.
func (s SimulationConfig) StartTime() time.Time { return s.startTime }

// ResourceConfig declares a global resource pool.
type ResourceConfig struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Amount            float64  `yaml:"amount"`
	Capacity          *float64 `yaml:"capacity"`
	Finite            bool     `yaml:"finite"`
	ReplenishRate     float64  `yaml:"replenishment_rate"`
	ReplenishFreq     string   `yaml:"replenishment_frequency"`
	ReplenishPerCycle int      `yaml:"replenishment_cycle"`
}

// SpawnConfig controls initial population and ongoing spawning.
type SpawnConfig struct {
	InitialPopulation int     `yaml:"initial_population"`
	Frequency         string  `yaml:"frequency"`
	Rate              int     `yaml:"rate"`
	Count             int     `yaml:"count"`
	MoneyMin          float64 `yaml:"starting_money_min"`
	MoneyMax          float64 `yaml:"starting_money_max"`
	FoodMin           float64 `yaml:"starting_food_min"`
	FoodMax           float64 `yaml:"starting_food_max"`
	WaterMin          float64 `yaml:"starting_water_min"`
	WaterMax          float64 `yaml:"starting_water_max"`
	AgeMin            int     `yaml:"starting_age_min"`
	AgeMax            int     `yaml:"starting_age_max"`
}

// NeedsConfig sets baseline hourly decay with per-entity variance.
type NeedsConfig struct {
	HungerRate float64 `yaml:"hunger_rate"`
	ThirstRate float64 `yaml:"thirst_rate"`
	RestRate   float64 `yaml:"rest_rate"`
	Variance   float64 `yaml:"variance"`
}

// FulfillConfig controls how needs convert into resource requirements.
type FulfillConfig struct {
	HungerThreshold float64 `yaml:"hunger_threshold"`
	ThirstThreshold float64 `yaml:"thirst_threshold"`
	RestThreshold   float64 `yaml:"rest_threshold"`
	FoodPerUnit     float64 `yaml:"food_per_unit"`
	WaterPerUnit    float64 `yaml:"water_per_unit"`
	RestRecovery    float64 `yaml:"rest_recovery"`
	FoodResource    string  `yaml:"food_resource"`
	WaterResource   string  `yaml:"water_resource"`
}

// HealthConfig controls damage from unmet needs and pressure, and slow
// healing when needs are met.
type HealthConfig struct {
	NeedThreshold  float64 `yaml:"need_threshold"`
	DamageMin      float64 `yaml:"damage_min"`
	DamageMax      float64 `yaml:"damage_max"`
	PressureDamage float64 `yaml:"pressure_damage"`
	HealRate       float64 `yaml:"heal_rate"`
}

// DeathConfig controls the age mortality curve. A dead entity's wealth always
// flows back into the pools matching its balances.
type DeathConfig struct {
	PeakAge        int     `yaml:"peak_age"`
	BaseAnnualProb float64 `yaml:"base_annual_probability"`
	MaxProb        float64 `yaml:"max_probability"`
	Frequency      string  `yaml:"frequency"`
	Rate           int     `yaml:"rate"`
}

// JobPosition declares one employer with a fixed number of openings.
type JobPosition struct {
	ID              string  `yaml:"id"`
	Kind            string  `yaml:"kind"`
	Openings        int     `yaml:"openings"`
	Wage            float64 `yaml:"wage"`
	PaymentResource string  `yaml:"payment_resource"`
}

// JobsConfig controls employment assignment and wage payment.
type JobsConfig struct {
	Positions    []JobPosition `yaml:"positions"`
	PayFrequency string        `yaml:"pay_frequency"`
	PayRate      int           `yaml:"pay_rate"`
	AdultAge     int           `yaml:"adult_age"`
}

// Flow is one baseline resource flow (consumption or production).
type Flow struct {
	ResourceID string  `yaml:"resource_id"`
	Rate       float64 `yaml:"rate"`
	Frequency  string  `yaml:"frequency"`
	Every      int     `yaml:"every"`
}

// FlowConfig groups the flows of one direction.
type FlowConfig struct {
	Flows []Flow `yaml:"flows"`
}

// SourceConditions gate a requirement source per entity.
type SourceConditions struct {
	RequiredComponent string `yaml:"required_component"`
	EmploymentKind    string `yaml:"employment_kind"`
	RequireHousehold  bool   `yaml:"require_household"`
}

// CostEntry is a per-unit price in some payment resource.
type CostEntry struct {
	ResourceID string  `yaml:"resource_id"`
	PerUnit    float64 `yaml:"per_unit"`
}

// SourceConfig declares one requirement source for a resource.
type SourceConfig struct {
	ID         string           `yaml:"id"`
	Kind       string           `yaml:"kind"`
	ResourceID string           `yaml:"resource_id"`
	Priority   int              `yaml:"priority"`
	Conditions SourceConditions `yaml:"conditions"`
	Cost       []CostEntry      `yaml:"cost"`
	Inputs     []CostEntry      `yaml:"inputs"`
	Strategy   string           `yaml:"strategy"`
}

// ResolverConfig lists all requirement sources.
type ResolverConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

// HistoryConfig controls analytics row cadence.
type HistoryConfig struct {
	Frequency string `yaml:"frequency"`
	Rate      int    `yaml:"rate"`
}

// LogCadence names a recurring world snapshot log line.
type LogCadence struct {
	Name      string `yaml:"name"`
	Frequency string `yaml:"frequency"`
	Rate      int    `yaml:"rate"`
}

// Default returns the baseline configuration a file is unmarshaled over.
func Default() *Config {
	water := 10000.0
	return &Config{
		Simulation: SimulationConfig{
			Start:          "2024-01-01 00:00",
			Seed:           Seed{Random: true},
			DBPath:         "civitas.db",
			SaveEveryTicks: 24,
		},
		Resources: []ResourceConfig{
			{ID: "food", Name: "Food", Amount: 5000, ReplenishRate: 50, ReplenishFreq: "daily", ReplenishPerCycle: 1},
			{ID: "water", Name: "Water", Amount: 8000, Capacity: &water, ReplenishRate: 200, ReplenishFreq: "daily", ReplenishPerCycle: 1},
			{ID: "money", Name: "Money", Amount: 100000, Finite: true},
		},
		Systems: []string{
			"ResourceProduction", "ResourceConsumption", "ResourceReplenishment",
			"ResourceHistory", "EntityHistory", "JobHistory",
			"HumanSpawn", "Needs", "NeedsFulfillment", "Health", "Death", "Jobs",
		},
		Spawn: SpawnConfig{
			InitialPopulation: 50, Frequency: "monthly", Rate: 1, Count: 2,
			MoneyMin: 50, MoneyMax: 200, FoodMin: 5, FoodMax: 20,
			WaterMin: 5, WaterMax: 20, AgeMin: 18, AgeMax: 45,
		},
		Needs: NeedsConfig{HungerRate: 0.02, ThirstRate: 0.03, RestRate: 0.04, Variance: 0.25},
		Fulfill: FulfillConfig{
			HungerThreshold: 0.5, ThirstThreshold: 0.5, RestThreshold: 0.7,
			FoodPerUnit: 1, WaterPerUnit: 1, RestRecovery: 0.1,
			FoodResource: "food", WaterResource: "water",
		},
		Health: HealthConfig{NeedThreshold: 0.5, DamageMin: 0.5, DamageMax: 2.0, PressureDamage: 0.05, HealRate: 0.2},
		Death: DeathConfig{
			PeakAge: 80, BaseAnnualProb: 0.005, MaxProb: 0.99,
			Frequency: "yearly", Rate: 1,
		},
		Jobs: JobsConfig{
			Positions: []JobPosition{
				{ID: "farm", Kind: "farmer", Openings: 20, Wage: 10, PaymentResource: "money"},
				{ID: "well", Kind: "drawer", Openings: 10, Wage: 8, PaymentResource: "money"},
			},
			PayFrequency: "weekly", PayRate: 1, AdultAge: 16,
		},
		Consumption: FlowConfig{},
		Production:  FlowConfig{},
		Resolver: ResolverConfig{
			Sources: []SourceConfig{
				{ID: "own-food", Kind: "inventory", ResourceID: "food", Priority: 1},
				{ID: "market-food", Kind: "market", ResourceID: "food", Priority: 2,
					Cost: []CostEntry{{ResourceID: "money", PerUnit: 2}}},
				{ID: "own-water", Kind: "inventory", ResourceID: "water", Priority: 1},
				{ID: "market-water", Kind: "market", ResourceID: "water", Priority: 2,
					Cost: []CostEntry{{ResourceID: "money", PerUnit: 0.5}}},
			},
		},
		History: HistoryConfig{Frequency: "daily", Rate: 1},
		Logging: []LogCadence{
			{Name: "daily", Frequency: "daily", Rate: 1},
			{Name: "monthly", Frequency: "monthly", Rate: 1},
		},
	}
}

// Load reads path, unmarshals over defaults, resolves the seed, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a config from raw YAML. Also the resume path, fed with the
// persisted snapshot.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Snapshot serializes the normalized config for persistence.
func (c *Config) Snapshot() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}
	return data, nil
}

// Validate resolves random seeds, parses the start datetime, and checks every
// frequency and structural field.
func (c *Config) Validate() error {
	if c.Simulation.Seed.Random {
		c.Simulation.Seed = Seed{Value: entropy.NewSeed()}
	}
	t, err := time.Parse(TimeLayout, c.Simulation.Start)
	if err != nil {
		return fmt.Errorf("simulation.start: %w", err)
	}
	c.Simulation.startTime = t
	if c.Simulation.DBPath == "" {
		return fmt.Errorf("simulation.db_path is required")
	}
	if c.Simulation.SaveEveryTicks < 1 {
		c.Simulation.SaveEveryTicks = 24
	}

	seen := map[string]bool{}
	for i, r := range c.Resources {
		if r.ID == "" {
			return fmt.Errorf("resources[%d]: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("resources[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if r.Finite && r.ReplenishRate != 0 {
			return fmt.Errorf("resource %q: finite resources cannot replenish", r.ID)
		}
		if r.ReplenishRate != 0 {
			if _, err := cadence.Parse(r.ReplenishFreq); err != nil {
				return fmt.Errorf("resource %q: %w", r.ID, err)
			}
		}
	}

	for _, f := range []struct {
		name string
		freq string
	}{
		{"human_spawn.frequency", c.Spawn.Frequency},
		{"death.frequency", c.Death.Frequency},
		{"jobs.pay_frequency", c.Jobs.PayFrequency},
		{"history.frequency", c.History.Frequency},
	} {
		if _, err := cadence.Parse(f.freq); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for i, fl := range c.Consumption.Flows {
		if _, err := cadence.Parse(fl.Frequency); err != nil {
			return fmt.Errorf("resource_consumption.flows[%d]: %w", i, err)
		}
	}
	for i, fl := range c.Production.Flows {
		if _, err := cadence.Parse(fl.Frequency); err != nil {
			return fmt.Errorf("resource_production.flows[%d]: %w", i, err)
		}
	}
	for i, lc := range c.Logging {
		if _, err := cadence.Parse(lc.Frequency); err != nil {
			return fmt.Errorf("logging[%d]: %w", i, err)
		}
	}
	for i, s := range c.Resolver.Sources {
		switch s.Kind {
		case "inventory", "household", "market", "production":
		default:
			return fmt.Errorf("requirements.sources[%d]: unknown kind %q", i, s.Kind)
		}
		if s.ID == "" || s.ResourceID == "" {
			return fmt.Errorf("requirements.sources[%d]: id and resource_id are required", i)
		}
	}
	return nil
}
