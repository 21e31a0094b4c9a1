package model

import (
	"fmt"
	"time"
)

// Clock is a time of day expressed as the offset from local midnight.
type Clock time.Duration

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// NewClock builds a Clock from hours, minutes and seconds.
func NewClock(h, m, s int) Clock {
	return Clock(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// Duration returns the offset as a time.Duration.
func (c Clock) Duration() time.Duration {
	return time.Duration(c)
}

// String formats the clock as HH:MM:SS.
func (c Clock) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

// CivilDate truncates t to its calendar day in t's location and returns it
// as midnight UTC, which is how DATE columns come back from the driver.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two civil dates.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
