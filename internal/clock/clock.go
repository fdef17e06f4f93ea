// Package clock tracks simulation time: one tick is one simulated hour,
// with calendar rules (month lengths, leap years) delegated to time.Time.
package clock

import "time"

// Clock holds the current simulation datetime and the monotonic tick counter.
// The scheduler is the only caller of Advance; everything else reads.
type Clock struct {
	current time.Time
	ticks   int64
}

// New creates a clock at the given start datetime with zero ticks elapsed.
func New(start time.Time) *Clock {
	return &Clock{current: start}
}

// Restore rebuilds a clock from persisted state.
func Restore(current time.Time, ticks int64) *Clock {
	return &Clock{current: current, ticks: ticks}
}

// Advance moves time forward by exactly one hour and returns the new datetime.
func (c *Clock) Advance() time.Time {
	c.current = c.current.Add(time.Hour)
	c.ticks++
	return c.current
}

// Now returns the current simulation datetime.
func (c *Clock) Now() time.Time { return c.current }

// Ticks returns the total number of ticks elapsed.
func (c *Clock) Ticks() int64 { return c.ticks }

// Year returns the current simulation year.
func (c *Clock) Year() int { return c.current.Year() }

// Month returns the current simulation month.
func (c *Clock) Month() time.Month { return c.current.Month() }

// Day returns the current day of month.
func (c *Clock) Day() int { return c.current.Day() }

// Hour returns the current hour (0-23).
func (c *Clock) Hour() int { return c.current.Hour() }

// IsNewDay reports whether the current tick is the first hour of a day.
func (c *Clock) IsNewDay() bool { return c.current.Hour() == 0 }

// IsNewMonth reports whether the current tick is the first hour of a month.
func (c *Clock) IsNewMonth() bool {
	return c.current.Day() == 1 && c.current.Hour() == 0
}

// IsNewYear reports whether the current tick is the first hour of a year.
func (c *Clock) IsNewYear() bool {
	return c.current.Month() == time.January && c.current.Day() == 1 && c.current.Hour() == 0
}
