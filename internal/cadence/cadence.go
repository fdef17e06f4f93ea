// Package cadence provides the shared frequency/rate boundary logic used by
// modifier repeat checks, resource replenishment, spawning, and logging.
package cadence

import (
	"fmt"
	"time"
)

// Frequency names a recurring period of simulated time.
type Frequency string

const (
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Parse converts a config string into a Frequency.
func Parse(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("invalid frequency %q", s)
	}
	return f, nil
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Hourly, Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// AtPeriodStart reports whether t is the first tick of an f period.
// Days start at hour 0, weeks on Monday, months on the 1st, years on Jan 1.
func AtPeriodStart(f Frequency, t time.Time) bool {
	switch f {
	case Hourly:
		return true
	case Daily:
		return t.Hour() == 0
	case Weekly:
		return t.Weekday() == time.Monday && t.Hour() == 0
	case Monthly:
		return t.Day() == 1 && t.Hour() == 0
	case Yearly:
		return t.Month() == time.January && t.Day() == 1 && t.Hour() == 0
	}
	return false
}

// AtPeriodEnd reports whether t is the last tick of an f period.
// Days end at hour 23, weeks on Sunday, months on their last calendar day,
// years on Dec 31. Modifier repeat evaluation runs on these boundaries.
func AtPeriodEnd(f Frequency, t time.Time) bool {
	switch f {
	case Hourly:
		return true
	case Daily:
		return t.Hour() == 23
	case Weekly:
		return t.Weekday() == time.Sunday && t.Hour() == 23
	case Monthly:
		return t.Day() == DaysInMonth(t.Year(), t.Month()) && t.Hour() == 23
	case Yearly:
		return t.Month() == time.December && t.Day() == 31 && t.Hour() == 23
	}
	return false
}

// PeriodsBetween counts whole f periods elapsed from `from` to `to`.
// Daily and weekly counts compare calendar dates, monthly and yearly counts
// compare calendar fields, matching how the boundary predicates align.
func PeriodsBetween(f Frequency, from, to time.Time) int {
	switch f {
	case Hourly:
		return int(to.Sub(from) / time.Hour)
	case Daily:
		return daysBetween(from, to)
	case Weekly:
		return daysBetween(from, to) / 7
	case Monthly:
		return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	case Yearly:
		return to.Year() - from.Year()
	}
	return 0
}

// Due reports whether an action on frequency f, performed every rate periods
// and last performed at `last` (zero time: never), is due at now. Actions
// fire only on period starts; the first opportunity always fires.
func Due(f Frequency, rate int, last, now time.Time) bool {
	if !AtPeriodStart(f, now) {
		return false
	}
	if last.IsZero() {
		return true
	}
	if rate < 1 {
		rate = 1
	}
	return PeriodsBetween(f, last, now) >= rate
}

// DaysInMonth returns the number of calendar days in the given month,
// honoring leap years.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
