// Package statute computes the decadence and prescription cutoffs of ISS
// invoices against one fixed reference day.
package statute

import "time"

const (
	limitationYears = 5
	dueDay          = 20 // tax is due on the 20th of the month after issuance
)

// Clock holds the reference day for a whole run. It is never re-read from the
// wall clock once built.
type Clock struct {
	today time.Time
}

// NewClock truncates today to its calendar day.
func NewClock(today time.Time) Clock {
	return Clock{today: Day(today)}
}

// Today returns the reference day.
func (c Clock) Today() time.Time {
	return c.today
}

// DecadenceCutoff is the first day of the issuance year advanced to that
// month's end, plus five years.
func (c Clock) DecadenceCutoff(issue time.Time) time.Time {
	jan := time.Date(issue.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return AddYears(EndOfMonth(jan), limitationYears)
}

// IsDecadent reports whether the right to assess a paid invoice is extinguished.
func (c Clock) IsDecadent(issue time.Time) bool {
	return !c.today.Before(c.DecadenceCutoff(issue))
}

// PrescriptionCutoff is the due date (last day of the month before issuance
// plus twenty days) plus five years.
func (c Clock) PrescriptionCutoff(issue time.Time) time.Time {
	first := time.Date(issue.Year(), issue.Month(), 1, 0, 0, 0, 0, time.UTC)
	due := first.AddDate(0, 0, -1).AddDate(0, 0, dueDay)
	return AddYears(due, limitationYears)
}

// IsPrescribed reports whether the right to collect an unpaid invoice is extinguished.
func (c Clock) IsPrescribed(issue time.Time) bool {
	return !c.today.Before(c.PrescriptionCutoff(issue))
}

// Day drops the time-of-day and location of t.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// AddYears adds n years, clamping Feb 29 to Feb 28 instead of rolling into March.
func AddYears(t time.Time, n int) time.Time {
	target := time.Date(t.Year()+n, t.Month(), 1, 0, 0, 0, 0, time.UTC)
	if last := EndOfMonth(target).Day(); t.Day() > last {
		return time.Date(target.Year(), target.Month(), last, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(target.Year(), target.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
