// Package persistence provides SQLite-based world state storage: a lossless
// transactional snapshot of the whole world plus append-only history tables
// for analytics.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/world"
)

const timeLayout = time.RFC3339

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		datetime TEXT NOT NULL,
		ticks INTEGER NOT NULL,
		rng_seed INTEGER NOT NULL,
		next_modifier_id INTEGER NOT NULL,
		config_snapshot TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount REAL NOT NULL,
		capacity REAL,
		finite INTEGER NOT NULL,
		replenish_rate REAL NOT NULL,
		replenish_freq TEXT NOT NULL,
		replenish_every INTEGER NOT NULL,
		last_replenished TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS modifiers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		target_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		magnitude REAL NOT NULL,
		direction TEXT NOT NULL,
		start_year INTEGER NOT NULL,
		end_year INTEGER NOT NULL,
		active INTEGER NOT NULL,
		repeat_probability REAL NOT NULL,
		repeat_frequency TEXT NOT NULL,
		repeat_rate INTEGER NOT NULL,
		repeat_duration_years INTEGER NOT NULL,
		parent_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entity_components (
		entity_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (entity_id, type)
	);

	CREATE TABLE IF NOT EXISTS systems (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		tick INTEGER NOT NULL,
		resource_id TEXT NOT NULL,
		amount REAL NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entity_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		tick INTEGER NOT NULL,
		population INTEGER NOT NULL,
		employed INTEGER NOT NULL,
		avg_health REAL NOT NULL,
		avg_hunger REAL NOT NULL,
		avg_thirst REAL NOT NULL,
		avg_rest REAL NOT NULL,
		total_wealth REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		tick INTEGER NOT NULL,
		population INTEGER NOT NULL,
		employed INTEGER NOT NULL,
		employment_rate REAL NOT NULL,
		total_wages REAL NOT NULL,
		by_kind_json TEXT NOT NULL,
		avg_wage_json TEXT NOT NULL,
		openings_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resource_history_resource ON resource_history(resource_id, tick);
	CREATE INDEX IF NOT EXISTS idx_entity_history_tick ON entity_history(tick);
	CREATE INDEX IF NOT EXISTS idx_job_history_tick ON job_history(tick);
	CREATE INDEX IF NOT EXISTS idx_modifiers_active ON modifiers(active);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// HasWorldState reports whether a saved world exists.
func (db *DB) HasWorldState() (bool, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM world_state WHERE id = 1")
	if err != nil {
		return false, fmt.Errorf("check world state: %w", err)
	}
	return n > 0, nil
}

// SaveWorldState writes the entire world in one transaction: clock, RNG seed,
// config snapshot, resources, modifiers, entities with their components, and
// the system registration order. Each save fully replaces the previous one;
// history tables are untouched.
func (db *DB) SaveWorldState(s *world.State, now time.Time, ticks int64, snapshot []byte) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO world_state
		(id, datetime, ticks, rng_seed, next_modifier_id, config_snapshot)
		VALUES (1, ?, ?, ?, ?, ?)`,
		now.Format(timeLayout), ticks, s.Seed(), s.NextModifierID(), string(snapshot),
	); err != nil {
		return fmt.Errorf("save world row: %w", err)
	}

	if err := saveResources(tx, s); err != nil {
		return err
	}
	if err := saveModifiers(tx, s); err != nil {
		return err
	}
	if err := saveEntities(tx, s); err != nil {
		return err
	}
	if err := saveSystems(tx, s); err != nil {
		return err
	}

	return tx.Commit()
}

func saveResources(tx *sqlx.Tx, s *world.State) error {
	if _, err := tx.Exec("DELETE FROM resources"); err != nil {
		return fmt.Errorf("clear resources: %w", err)
	}
	stmt, err := tx.Preparex(`INSERT INTO resources
		(id, name, amount, capacity, finite, replenish_rate, replenish_freq,
		 replenish_every, last_replenished, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range s.Resources() {
		var capacity any
		if r.Capacity != nil {
			capacity = *r.Capacity
		}
		last := ""
		if !r.LastReplenished().IsZero() {
			last = r.LastReplenished().Format(timeLayout)
		}
		if _, err := stmt.Exec(
			r.ID, r.Name, r.Amount(), capacity, boolInt(r.Finite),
			r.ReplenishRate, string(r.ReplenishFreq), r.ReplenishEvery,
			last, string(r.Status()),
		); err != nil {
			return fmt.Errorf("insert resource %q: %w", r.ID, err)
		}
	}
	return nil
}

func saveModifiers(tx *sqlx.Tx, s *world.State) error {
	if _, err := tx.Exec("DELETE FROM modifiers"); err != nil {
		return fmt.Errorf("clear modifiers: %w", err)
	}
	stmt, err := tx.Preparex(modifierInsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range s.Modifiers() {
		if _, err := stmt.Exec(modifierArgs(m)...); err != nil {
			return fmt.Errorf("insert modifier %d: %w", m.ID, err)
		}
	}
	return nil
}

func saveEntities(tx *sqlx.Tx, s *world.State) error {
	if _, err := tx.Exec("DELETE FROM entities"); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entity_components"); err != nil {
		return fmt.Errorf("clear entity components: %w", err)
	}
	entStmt, err := tx.Preparex("INSERT INTO entities (id, position) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer entStmt.Close()
	compStmt, err := tx.Preparex(
		"INSERT INTO entity_components (entity_id, type, payload) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer compStmt.Close()

	for pos, e := range s.Entities() {
		if _, err := entStmt.Exec(e.ID(), pos); err != nil {
			return fmt.Errorf("insert entity %q: %w", e.ID(), err)
		}
		for _, name := range e.ComponentTypes() {
			c, _ := e.Get(name)
			payload, err := world.EncodeComponent(c)
			if err != nil {
				return err
			}
			if _, err := compStmt.Exec(e.ID(), name, string(payload)); err != nil {
				return fmt.Errorf("insert component %q of %q: %w", name, e.ID(), err)
			}
		}
	}
	return nil
}

func saveSystems(tx *sqlx.Tx, s *world.State) error {
	if _, err := tx.Exec("DELETE FROM systems"); err != nil {
		return fmt.Errorf("clear systems: %w", err)
	}
	for pos, sys := range s.Systems() {
		if _, err := tx.Exec(
			"INSERT INTO systems (position, id) VALUES (?, ?)", pos, sys.ID(),
		); err != nil {
			return fmt.Errorf("insert system %q: %w", sys.ID(), err)
		}
	}
	return nil
}

// LoadedState is the result of loading a saved world. Systems come back as
// ids; the scheduler maps them to registered instances and re-inits them from
// the config snapshot.
type LoadedState struct {
	State     *world.State
	Now       time.Time
	Ticks     int64
	SystemIDs []string
	Snapshot  []byte
}

// ErrNoWorldState is returned by LoadWorldState when nothing has been saved.
var ErrNoWorldState = errors.New("persistence: no saved world state")

// LoadWorldState reconstructs the world from the last save. The RNG is
// re-seeded with the stored seed.
func (db *DB) LoadWorldState() (*LoadedState, error) {
	var row struct {
		Datetime       string `db:"datetime"`
		Ticks          int64  `db:"ticks"`
		RngSeed        int64  `db:"rng_seed"`
		NextModifierID int64  `db:"next_modifier_id"`
		ConfigSnapshot string `db:"config_snapshot"`
	}
	err := db.conn.Get(&row, "SELECT datetime, ticks, rng_seed, next_modifier_id, config_snapshot FROM world_state WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWorldState
	}
	if err != nil {
		return nil, fmt.Errorf("load world row: %w", err)
	}
	now, err := time.Parse(timeLayout, row.Datetime)
	if err != nil {
		return nil, fmt.Errorf("parse saved datetime: %w", err)
	}

	s := world.NewState(row.RngSeed)
	s.SetNextModifierID(row.NextModifierID)

	if err := loadResources(db.conn, s); err != nil {
		return nil, err
	}
	if err := loadModifiers(db.conn, s); err != nil {
		return nil, err
	}
	if err := loadEntities(db.conn, s); err != nil {
		return nil, err
	}
	ids, err := loadSystemIDs(db.conn)
	if err != nil {
		return nil, err
	}

	return &LoadedState{
		State:     s,
		Now:       now,
		Ticks:     row.Ticks,
		SystemIDs: ids,
		Snapshot:  []byte(row.ConfigSnapshot),
	}, nil
}

func loadResources(conn *sqlx.DB, s *world.State) error {
	var rows []struct {
		ID              string          `db:"id"`
		Name            string          `db:"name"`
		Amount          float64         `db:"amount"`
		Capacity        sql.NullFloat64 `db:"capacity"`
		Finite          int             `db:"finite"`
		ReplenishRate   float64         `db:"replenish_rate"`
		ReplenishFreq   string          `db:"replenish_freq"`
		ReplenishEvery  int             `db:"replenish_every"`
		LastReplenished string          `db:"last_replenished"`
	}
	if err := conn.Select(&rows, "SELECT id, name, amount, capacity, finite, replenish_rate, replenish_freq, replenish_every, last_replenished FROM resources ORDER BY rowid"); err != nil {
		return fmt.Errorf("load resources: %w", err)
	}
	for _, row := range rows {
		r := &world.Resource{
			ID:             row.ID,
			Name:           row.Name,
			Finite:         row.Finite != 0,
			ReplenishRate:  row.ReplenishRate,
			ReplenishFreq:  cadence.Frequency(row.ReplenishFreq),
			ReplenishEvery: row.ReplenishEvery,
		}
		if row.Capacity.Valid {
			capacity := row.Capacity.Float64
			r.Capacity = &capacity
		}
		r.SetAmount(row.Amount)
		if row.LastReplenished != "" {
			last, err := time.Parse(timeLayout, row.LastReplenished)
			if err != nil {
				return fmt.Errorf("resource %q: parse last_replenished: %w", row.ID, err)
			}
			r.MarkReplenished(last)
		}
		if err := s.AddResource(r); err != nil {
			return err
		}
	}
	return nil
}

func loadModifiers(conn *sqlx.DB, s *world.State) error {
	var rows []modifierRow
	if err := conn.Select(&rows, "SELECT "+modifierColumns+" FROM modifiers ORDER BY id"); err != nil {
		return fmt.Errorf("load modifiers: %w", err)
	}
	for _, row := range rows {
		if err := s.AddModifier(row.toModifier()); err != nil {
			return err
		}
	}
	return nil
}

func loadEntities(conn *sqlx.DB, s *world.State) error {
	var ids []string
	if err := conn.Select(&ids, "SELECT id FROM entities ORDER BY position"); err != nil {
		return fmt.Errorf("load entities: %w", err)
	}
	stmt, err := conn.Preparex("SELECT type, payload FROM entity_components WHERE entity_id = ? ORDER BY type")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		e := world.NewEntity(id)
		var comps []struct {
			Type    string `db:"type"`
			Payload string `db:"payload"`
		}
		if err := stmt.Select(&comps, id); err != nil {
			return fmt.Errorf("load components of %q: %w", id, err)
		}
		for _, row := range comps {
			c, err := world.DecodeComponent(row.Type, []byte(row.Payload))
			if err != nil {
				return fmt.Errorf("entity %q: %w", id, err)
			}
			e.Set(c)
		}
		if err := s.AddEntity(e); err != nil {
			return err
		}
	}
	return nil
}

func loadSystemIDs(conn *sqlx.DB) ([]string, error) {
	var ids []string
	if err := conn.Select(&ids, "SELECT id FROM systems ORDER BY position"); err != nil {
		return nil, fmt.Errorf("load systems: %w", err)
	}
	return ids, nil
}

const modifierColumns = `id, name, target_kind, target_id, kind, magnitude,
	direction, start_year, end_year, active, repeat_probability,
	repeat_frequency, repeat_rate, repeat_duration_years, parent_id`

const modifierInsertSQL = `INSERT INTO modifiers
	(id, name, target_kind, target_id, kind, magnitude, direction,
	 start_year, end_year, active, repeat_probability, repeat_frequency,
	 repeat_rate, repeat_duration_years, parent_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type modifierRow struct {
	ID                  int64   `db:"id"`
	Name                string  `db:"name"`
	TargetKind          string  `db:"target_kind"`
	TargetID            string  `db:"target_id"`
	Kind                string  `db:"kind"`
	Magnitude           float64 `db:"magnitude"`
	Direction           string  `db:"direction"`
	StartYear           int     `db:"start_year"`
	EndYear             int     `db:"end_year"`
	Active              int     `db:"active"`
	RepeatProbability   float64 `db:"repeat_probability"`
	RepeatFrequency     string  `db:"repeat_frequency"`
	RepeatRate          int     `db:"repeat_rate"`
	RepeatDurationYears int     `db:"repeat_duration_years"`
	ParentID            int64   `db:"parent_id"`
}

func (row modifierRow) toModifier() *modifier.Modifier {
	return &modifier.Modifier{
		ID:                  row.ID,
		Name:                row.Name,
		TargetKind:          modifier.TargetKind(row.TargetKind),
		TargetID:            row.TargetID,
		Kind:                modifier.EffectKind(row.Kind),
		Magnitude:           row.Magnitude,
		Direction:           modifier.Direction(row.Direction),
		StartYear:           row.StartYear,
		EndYear:             row.EndYear,
		Active:              row.Active != 0,
		RepeatProbability:   row.RepeatProbability,
		RepeatFrequency:     cadence.Frequency(row.RepeatFrequency),
		RepeatRate:          row.RepeatRate,
		RepeatDurationYears: row.RepeatDurationYears,
		ParentID:            row.ParentID,
	}
}

func modifierArgs(m *modifier.Modifier) []any {
	return []any{
		m.ID, m.Name, string(m.TargetKind), m.TargetID, string(m.Kind),
		m.Magnitude, string(m.Direction), m.StartYear, m.EndYear,
		boolInt(m.Active), m.RepeatProbability, string(m.RepeatFrequency),
		m.RepeatRate, m.RepeatDurationYears, m.ParentID,
	}
}

// InsertModifier writes one modifier row outside the periodic save cycle.
// Renewal children are persisted through this as soon as they are created.
func (db *DB) InsertModifier(m *modifier.Modifier) error {
	_, err := db.conn.Exec(modifierInsertSQL, modifierArgs(m)...)
	if err != nil {
		return fmt.Errorf("insert modifier %d: %w", m.ID, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
