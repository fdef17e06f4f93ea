package engine

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civitas/internal/config"
)

// logSnapshot emits one world summary line for a logging cadence.
func (sim *Simulation) logSnapshot(name string, now time.Time) {
	args := []any{
		"cadence", name,
		"date", now.Format(config.TimeLayout),
		"tick", humanize.Comma(sim.clk.Ticks()),
		"population", humanize.Comma(int64(len(sim.state.Entities()))),
		"modifiers", len(sim.state.ActiveModifiers(now.Year())),
	}
	for _, r := range sim.state.Resources() {
		args = append(args, "resource."+r.ID,
			humanize.CommafWithDigits(r.Amount(), 1)+" ("+string(r.Status())+")")
	}
	slog.Info("world snapshot", args...)
}
