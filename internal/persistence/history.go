package persistence

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResourceSample is one analytics row for a resource pool.
type ResourceSample struct {
	RecordedAt time.Time
	Tick       int64
	ResourceID string
	Amount     float64
	Status     string
}

// EntitySample is one analytics row aggregating the population.
type EntitySample struct {
	RecordedAt  time.Time
	Tick        int64
	Population  int
	Employed    int
	AvgHealth   float64
	AvgHunger   float64
	AvgThirst   float64
	AvgRest     float64
	TotalWealth float64
}

// JobSample is one analytics row for the labor market. The per-kind maps are
// stored as JSON columns.
type JobSample struct {
	RecordedAt     time.Time
	Tick           int64
	Population     int
	Employed       int
	EmploymentRate float64
	TotalWages     float64
	ByKind         map[string]int
	AvgWageByKind  map[string]float64
	Openings       map[string]int
}

// AppendResourceHistory writes one sample per resource in a single
// transaction.
func (db *DB) AppendResourceHistory(samples []ResourceSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin resource history: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO resource_history
		(recorded_at, tick, resource_id, amount, status)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(
			s.RecordedAt.Format(timeLayout), s.Tick, s.ResourceID, s.Amount, s.Status,
		); err != nil {
			return fmt.Errorf("insert resource history %q: %w", s.ResourceID, err)
		}
	}
	return tx.Commit()
}

// AppendEntityHistory writes one population aggregate row.
func (db *DB) AppendEntityHistory(s EntitySample) error {
	_, err := db.conn.Exec(`INSERT INTO entity_history
		(recorded_at, tick, population, employed, avg_health, avg_hunger,
		 avg_thirst, avg_rest, total_wealth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RecordedAt.Format(timeLayout), s.Tick, s.Population, s.Employed,
		s.AvgHealth, s.AvgHunger, s.AvgThirst, s.AvgRest, s.TotalWealth,
	)
	if err != nil {
		return fmt.Errorf("insert entity history: %w", err)
	}
	return nil
}

// AppendJobHistory writes one labor market aggregate row.
func (db *DB) AppendJobHistory(s JobSample) error {
	byKind, err := json.Marshal(s.ByKind)
	if err != nil {
		return fmt.Errorf("encode job history: %w", err)
	}
	avgWage, err := json.Marshal(s.AvgWageByKind)
	if err != nil {
		return fmt.Errorf("encode job history: %w", err)
	}
	openings, err := json.Marshal(s.Openings)
	if err != nil {
		return fmt.Errorf("encode job history: %w", err)
	}
	_, err = db.conn.Exec(`INSERT INTO job_history
		(recorded_at, tick, population, employed, employment_rate, total_wages,
		 by_kind_json, avg_wage_json, openings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RecordedAt.Format(timeLayout), s.Tick, s.Population, s.Employed,
		s.EmploymentRate, s.TotalWages, string(byKind), string(avgWage), string(openings),
	)
	if err != nil {
		return fmt.Errorf("insert job history: %w", err)
	}
	return nil
}

// LatestJobSample returns the newest labor market aggregate, or nil when no
// history exists yet.
func (db *DB) LatestJobSample() (*JobSample, error) {
	var rows []struct {
		RecordedAt     string  `db:"recorded_at"`
		Tick           int64   `db:"tick"`
		Population     int     `db:"population"`
		Employed       int     `db:"employed"`
		EmploymentRate float64 `db:"employment_rate"`
		TotalWages     float64 `db:"total_wages"`
		ByKindJSON     string  `db:"by_kind_json"`
		AvgWageJSON    string  `db:"avg_wage_json"`
		OpeningsJSON   string  `db:"openings_json"`
	}
	err := db.conn.Select(&rows, `SELECT recorded_at, tick, population, employed,
		employment_rate, total_wages, by_kind_json, avg_wage_json, openings_json
		FROM job_history ORDER BY tick DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	at, err := time.Parse(timeLayout, row.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse history timestamp: %w", err)
	}
	s := &JobSample{
		RecordedAt: at, Tick: row.Tick, Population: row.Population,
		Employed: row.Employed, EmploymentRate: row.EmploymentRate,
		TotalWages: row.TotalWages,
	}
	if err := json.Unmarshal([]byte(row.ByKindJSON), &s.ByKind); err != nil {
		return nil, fmt.Errorf("decode job history: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AvgWageJSON), &s.AvgWageByKind); err != nil {
		return nil, fmt.Errorf("decode job history: %w", err)
	}
	if err := json.Unmarshal([]byte(row.OpeningsJSON), &s.Openings); err != nil {
		return nil, fmt.Errorf("decode job history: %w", err)
	}
	return s, nil
}

// ResourceHistory returns the most recent samples for one resource, newest
// first.
func (db *DB) ResourceHistory(resourceID string, limit int) ([]ResourceSample, error) {
	var rows []struct {
		RecordedAt string  `db:"recorded_at"`
		Tick       int64   `db:"tick"`
		ResourceID string  `db:"resource_id"`
		Amount     float64 `db:"amount"`
		Status     string  `db:"status"`
	}
	err := db.conn.Select(&rows, `SELECT recorded_at, tick, resource_id, amount, status
		FROM resource_history WHERE resource_id = ? ORDER BY tick DESC LIMIT ?`,
		resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query resource history: %w", err)
	}
	out := make([]ResourceSample, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timeLayout, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		out = append(out, ResourceSample{
			RecordedAt: at, Tick: row.Tick, ResourceID: row.ResourceID,
			Amount: row.Amount, Status: row.Status,
		})
	}
	return out, nil
}

// AllResourceHistory streams every resource sample in tick order, for CSV
// export.
func (db *DB) AllResourceHistory() ([]ResourceSample, error) {
	var rows []struct {
		RecordedAt string  `db:"recorded_at"`
		Tick       int64   `db:"tick"`
		ResourceID string  `db:"resource_id"`
		Amount     float64 `db:"amount"`
		Status     string  `db:"status"`
	}
	err := db.conn.Select(&rows, `SELECT recorded_at, tick, resource_id, amount, status
		FROM resource_history ORDER BY tick, resource_id`)
	if err != nil {
		return nil, fmt.Errorf("query resource history: %w", err)
	}
	out := make([]ResourceSample, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timeLayout, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		out = append(out, ResourceSample{
			RecordedAt: at, Tick: row.Tick, ResourceID: row.ResourceID,
			Amount: row.Amount, Status: row.Status,
		})
	}
	return out, nil
}

// LatestEntitySample returns the newest population aggregate, or nil when no
// history exists yet.
func (db *DB) LatestEntitySample() (*EntitySample, error) {
	var rows []struct {
		RecordedAt  string  `db:"recorded_at"`
		Tick        int64   `db:"tick"`
		Population  int     `db:"population"`
		Employed    int     `db:"employed"`
		AvgHealth   float64 `db:"avg_health"`
		AvgHunger   float64 `db:"avg_hunger"`
		AvgThirst   float64 `db:"avg_thirst"`
		AvgRest     float64 `db:"avg_rest"`
		TotalWealth float64 `db:"total_wealth"`
	}
	err := db.conn.Select(&rows, `SELECT recorded_at, tick, population, employed,
		avg_health, avg_hunger, avg_thirst, avg_rest, total_wealth
		FROM entity_history ORDER BY tick DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("query entity history: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	at, err := time.Parse(timeLayout, row.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse history timestamp: %w", err)
	}
	return &EntitySample{
		RecordedAt: at, Tick: row.Tick, Population: row.Population,
		Employed: row.Employed, AvgHealth: row.AvgHealth, AvgHunger: row.AvgHunger,
		AvgThirst: row.AvgThirst, AvgRest: row.AvgRest, TotalWealth: row.TotalWealth,
	}, nil
}
