// Command civview inspects a civitas database: saved world state, resources,
// modifiers, entities, and history exports. It operates on the database
// directly and can run while the simulation is down.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/modifier"
	"github.com/talgya/civitas/internal/persistence"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "state":
		err = runState(args)
	case "resources":
		err = runResources(args)
	case "modifiers":
		err = runModifiers(args)
	case "entities":
		err = runEntities(args)
	case "export-resources":
		err = runExportResources(args)
	case "add-modifier":
		err = runAddModifier(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "civview:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: civview <command> [flags]

commands:
  state             show the saved clock, tick count and seed
  resources         list resource pools with amounts and status
  modifiers         list modifiers (-active for active only)
  entities          list entities with their component types
  export-resources  write resource history as CSV (-o file)
  add-modifier      insert a modifier into the saved world`)
}

func openDB(fs *flag.FlagSet, args []string) (*persistence.DB, error) {
	dbPath := fs.String("db", "civitas.db", "database path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return persistence.Open(*dbPath)
}

func runState(args []string) error {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := db.Meta()
	if err != nil {
		return err
	}
	fmt.Printf("datetime:  %s\n", meta.Datetime.Format("2006-01-02 15:04"))
	fmt.Printf("ticks:     %s\n", humanize.Comma(meta.Ticks))
	fmt.Printf("rng seed:  %d\n", meta.RngSeed)

	if sample, err := db.LatestEntitySample(); err == nil && sample != nil {
		fmt.Printf("population: %d (employed %d)\n", sample.Population, sample.Employed)
		fmt.Printf("avg health: %.1f  hunger %.2f  thirst %.2f  rest %.2f\n",
			sample.AvgHealth, sample.AvgHunger, sample.AvgThirst, sample.AvgRest)
		fmt.Printf("total wealth: %s\n", humanize.CommafWithDigits(sample.TotalWealth, 1))
	}
	if jobs, err := db.LatestJobSample(); err == nil && jobs != nil {
		fmt.Printf("employment: %.1f%%  wage bill %s\n",
			jobs.EmploymentRate, humanize.CommafWithDigits(jobs.TotalWages, 1))
		for _, kind := range sortedKeys(jobs.ByKind) {
			fmt.Printf("  %-12s %4d employed  avg wage %.2f\n",
				kind, jobs.ByKind[kind], jobs.AvgWageByKind[kind])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runResources(args []string) error {
	fs := flag.NewFlagSet("resources", flag.ExitOnError)
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ResourceRows()
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Printf("%-12s %-16s %14s  %s\n",
			r.ID, r.Name, humanize.CommafWithDigits(r.Amount, 1), r.Status)
	}
	return nil
}

func runModifiers(args []string) error {
	fs := flag.NewFlagSet("modifiers", flag.ExitOnError)
	activeOnly := fs.Bool("active", false, "show only active modifiers")
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	mods, err := db.ModifierRows(*activeOnly)
	if err != nil {
		return err
	}
	for _, m := range mods {
		state := "inactive"
		if m.Active {
			state = "active"
		}
		parent := ""
		if m.ParentID != 0 {
			parent = fmt.Sprintf("  parent=%d", m.ParentID)
		}
		fmt.Printf("#%-4d %-24s %s %s/%s %s %.3f  years %d-%d  %s%s\n",
			m.ID, m.Name, m.TargetKind, m.TargetID, string(m.Kind),
			m.Direction, m.Magnitude, m.StartYear, m.EndYear, state, parent)
	}
	return nil
}

func runEntities(args []string) error {
	fs := flag.NewFlagSet("entities", flag.ExitOnError)
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.EntityRows()
	if err != nil {
		return err
	}
	for _, e := range rows {
		fmt.Printf("%s  %v\n", e.ID, e.Components)
	}
	fmt.Printf("%d entities\n", len(rows))
	return nil
}

func runExportResources(args []string) error {
	fs := flag.NewFlagSet("export-resources", flag.ExitOnError)
	out := fs.String("o", "", "output file (default stdout)")
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	samples, err := db.AllResourceHistory()
	if err != nil {
		return err
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"recorded_at", "tick", "resource_id", "amount", "status"}); err != nil {
		return err
	}
	for _, s := range samples {
		record := []string{
			s.RecordedAt.Format(time.RFC3339),
			strconv.FormatInt(s.Tick, 10),
			s.ResourceID,
			strconv.FormatFloat(s.Amount, 'f', -1, 64),
			s.Status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func runAddModifier(args []string) error {
	fs := flag.NewFlagSet("add-modifier", flag.ExitOnError)
	name := fs.String("name", "", "modifier name")
	targetKind := fs.String("target-kind", "resource", "target kind: resource or system")
	targetID := fs.String("target-id", "", "target resource or system id")
	kind := fs.String("kind", "percentage", "effect kind: percentage or direct")
	magnitude := fs.Float64("magnitude", 0, "effect magnitude")
	direction := fs.String("direction", "decrease", "direction: increase or decrease")
	startYear := fs.Int("start-year", 0, "first year the modifier is active")
	endYear := fs.Int("end-year", 0, "first year the modifier is no longer active")
	repeatProb := fs.Float64("repeat-prob", 0, "renewal probability in [0,1]")
	repeatFreq := fs.String("repeat-freq", "yearly", "renewal check frequency")
	repeatDuration := fs.Int("repeat-duration", 0, "years a renewed modifier lasts (0: original duration)")
	db, err := openDB(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.NextModifierID()
	if err != nil {
		return err
	}
	m := &modifier.Modifier{
		ID:                  id,
		Name:                *name,
		TargetKind:          modifier.TargetKind(*targetKind),
		TargetID:            *targetID,
		Kind:                modifier.EffectKind(*kind),
		Magnitude:           *magnitude,
		Direction:           modifier.Direction(*direction),
		StartYear:           *startYear,
		EndYear:             *endYear,
		Active:              true,
		RepeatProbability:   *repeatProb,
		RepeatFrequency:     cadence.Frequency(*repeatFreq),
		RepeatDurationYears: *repeatDuration,
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := db.InsertModifier(m); err != nil {
		return err
	}
	if err := db.BumpModifierCounter(id); err != nil {
		return err
	}
	fmt.Printf("modifier #%d added\n", id)
	return nil
}
