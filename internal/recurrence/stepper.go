// Package recurrence projects transaction templates onto concrete dates.
//
// Each recurrence kind has its own Stepper strategy that knows where the
// n-th occurrence falls and how many occurrences precede a given date.
// Both questions are answered in closed form from the anchor date, so
// expansion never walks a series from an old anchor and month-based
// strides never drift after a short month.
package recurrence

import (
	"errors"
	"fmt"

	"saldo/internal/core"
)

var ErrUnknownRecurrence = errors.New("unknown recurrence")

// Stepper is the strategy interface for one recurrence kind.
type Stepper interface {
	// Occurrence returns occurrence n of a series anchored at anchor.
	// Occurrence 0 is the anchor itself.
	Occurrence(anchor core.Date, n int) core.Date

	// CountBefore returns how many occurrences fall strictly before limit.
	// It is also the index of the first occurrence on or after limit.
	CountBefore(anchor, limit core.Date) int
}

// DayStepper advances by a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Occurrence(anchor core.Date, n int) core.Date {
	return anchor.AddDays(n * s.Days)
}

func (s DayStepper) CountBefore(anchor, limit core.Date) int {
	if !anchor.Before(limit) {
		return 0
	}
	days := limit.DaysSince(anchor)
	return (days + s.Days - 1) / s.Days
}

// MonthStepper advances by whole calendar months from the anchor. The day
// of month is clamped to the last day of the target month, so a series
// anchored on the 31st lands on Feb 28/29, then Mar 31, then Apr 30.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Occurrence(anchor core.Date, n int) core.Date {
	total := monthIndex(anchor) + n*s.Months
	year, month := total/12, total%12+1
	day := min(anchor.Day(), core.DaysIn(year, month))
	return core.NewDate(year, month, day)
}

func (s MonthStepper) CountBefore(anchor, limit core.Date) int {
	if !anchor.Before(limit) {
		return 0
	}
	n := (monthIndex(limit) - monthIndex(anchor)) / s.Months
	if s.Occurrence(anchor, n).Before(limit) {
		return n + 1
	}
	return n
}

func monthIndex(d core.Date) int {
	return d.Year()*12 + d.Month() - 1
}

// IsOccurrence reports whether d is one of the series' dates.
func IsOccurrence(s Stepper, anchor, d core.Date) bool {
	if d.Before(anchor) {
		return false
	}
	return s.Occurrence(anchor, s.CountBefore(anchor, d)).Equal(d)
}

// steppers maps recurrence kinds to their strategies.
var steppers = map[core.Recurrence]Stepper{
	core.Daily:     DayStepper{Days: 1},
	core.Weekly:    DayStepper{Days: 7},
	core.BiWeekly:  DayStepper{Days: 14},
	core.Monthly:   MonthStepper{Months: 1},
	core.Quarterly: MonthStepper{Months: 3},
	core.Yearly:    MonthStepper{Months: 12},
}

// StepperFor returns the stepper for a recurrence kind.
func StepperFor(kind core.Recurrence) (Stepper, error) {
	s, ok := steppers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecurrence, kind)
	}
	return s, nil
}

// RegisterStepper adds or replaces the stepper for a recurrence kind.
// Call it during initialisation; the registry is not locked.
func RegisterStepper(kind core.Recurrence, s Stepper) {
	steppers[kind] = s
}
