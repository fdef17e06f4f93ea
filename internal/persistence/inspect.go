package persistence

import (
	"fmt"
	"time"

	"github.com/talgya/civitas/internal/modifier"
)

// WorldMeta is the saved clock and RNG identity, for inspection tooling.
type WorldMeta struct {
	Datetime time.Time
	Ticks    int64
	RngSeed  int64
}

// Meta returns the saved world metadata.
func (db *DB) Meta() (*WorldMeta, error) {
	var row struct {
		Datetime string `db:"datetime"`
		Ticks    int64  `db:"ticks"`
		RngSeed  int64  `db:"rng_seed"`
	}
	if err := db.conn.Get(&row, "SELECT datetime, ticks, rng_seed FROM world_state WHERE id = 1"); err != nil {
		return nil, fmt.Errorf("load world meta: %w", err)
	}
	at, err := time.Parse(timeLayout, row.Datetime)
	if err != nil {
		return nil, fmt.Errorf("parse saved datetime: %w", err)
	}
	return &WorldMeta{Datetime: at, Ticks: row.Ticks, RngSeed: row.RngSeed}, nil
}

// ResourceRow is a saved resource pool as stored, for inspection tooling.
type ResourceRow struct {
	ID     string  `db:"id"`
	Name   string  `db:"name"`
	Amount float64 `db:"amount"`
	Status string  `db:"status"`
}

// ResourceRows returns the saved resources in save order.
func (db *DB) ResourceRows() ([]ResourceRow, error) {
	var rows []ResourceRow
	if err := db.conn.Select(&rows, "SELECT id, name, amount, status FROM resources ORDER BY rowid"); err != nil {
		return nil, fmt.Errorf("load resource rows: %w", err)
	}
	return rows, nil
}

// ModifierRows returns saved modifiers, optionally only the active ones.
func (db *DB) ModifierRows(activeOnly bool) ([]*modifier.Modifier, error) {
	query := "SELECT " + modifierColumns + " FROM modifiers"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"
	var rows []modifierRow
	if err := db.conn.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("load modifier rows: %w", err)
	}
	out := make([]*modifier.Modifier, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModifier())
	}
	return out, nil
}

// EntityRow is one saved entity with its component type names.
type EntityRow struct {
	ID         string
	Components []string
}

// EntityRows returns saved entities with their component types, in save
// order.
func (db *DB) EntityRows() ([]EntityRow, error) {
	var ids []string
	if err := db.conn.Select(&ids, "SELECT id FROM entities ORDER BY position"); err != nil {
		return nil, fmt.Errorf("load entity rows: %w", err)
	}
	stmt, err := db.conn.Preparex("SELECT type FROM entity_components WHERE entity_id = ? ORDER BY type")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]EntityRow, 0, len(ids))
	for _, id := range ids {
		var types []string
		if err := stmt.Select(&types, id); err != nil {
			return nil, fmt.Errorf("load component types of %q: %w", id, err)
		}
		out = append(out, EntityRow{ID: id, Components: types})
	}
	return out, nil
}

// NextModifierID returns the saved id counter, so tooling can insert rows
// without colliding with the simulation's own ids.
func (db *DB) NextModifierID() (int64, error) {
	var id int64
	if err := db.conn.Get(&id, "SELECT next_modifier_id FROM world_state WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("load modifier counter: %w", err)
	}
	return id, nil
}

// BumpModifierCounter advances the saved id counter past id.
func (db *DB) BumpModifierCounter(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE world_state SET next_modifier_id = MAX(next_modifier_id, ?) WHERE id = 1", id+1)
	if err != nil {
		return fmt.Errorf("bump modifier counter: %w", err)
	}
	return nil
}
