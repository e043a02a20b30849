package shared

import "time"

// Clock supplies the current time. Date comparisons (effective dates,
// due dates, overdue detection) all go through it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock in loc, or UTC when loc is nil.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

// Now returns the current time
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used in tests and replays.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.At
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today returns the start of the current day according to clock.
func Today(clock Clock) time.Time {
	return StartOfDay(clock.Now())
}

// DateLayout is the calendar date format used for date-only columns
const DateLayout = "2006-01-02"

// CompareDates compares the calendar dates of a and b, each read in its own
// location. Date-only values loaded from the database arrive as UTC midnight
// while "today" is midnight in the configured zone, so instants cannot be
// compared directly.
func CompareDates(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Compare(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}

// DateString formats t's calendar date in t's own location
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}
