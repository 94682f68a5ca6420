package recurrence

import (
	"time"

	"saldo/internal/core"
)

// OccurrencesBefore counts the instances of t dated strictly before d,
// anchor included, honoring the end date and excluded dates. It matches
// what Expand would yield over any window ending the day before d, without
// the cap.
func OccurrencesBefore(t core.Template, d core.Date) int {
	if t.Date.IsZero() {
		return 0
	}
	limit := d
	if t.Recurrence.IsRecurring() && !t.RecurrenceEndDate.IsZero() {
		if after := t.RecurrenceEndDate.AddDays(1); after.Before(limit) {
			limit = after
		}
	}

	stepper, err := StepperFor(t.Recurrence)
	if !t.Recurrence.IsRecurring() || err != nil {
		if t.Date.Before(limit) && !t.IsExcluded(t.Date) {
			return 1
		}
		return 0
	}

	count := stepper.CountBefore(t.Date, limit)
	seen := make(map[string]struct{}, len(t.ExcludedDates))
	for _, ex := range t.ExcludedDates {
		key := ex.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if ex.Before(limit) && IsOccurrence(stepper, t.Date, ex) {
			count--
		}
	}
	return count
}

// Occurs reports whether the series of t has a date on d, ignoring
// excluded dates. The anchor always counts.
func Occurs(t core.Template, d core.Date) bool {
	if t.Date.IsZero() {
		return false
	}
	if d.Equal(t.Date) {
		return true
	}
	if !t.Recurrence.IsRecurring() {
		return false
	}
	if !t.RecurrenceEndDate.IsZero() && d.After(t.RecurrenceEndDate) {
		return false
	}
	stepper, err := StepperFor(t.Recurrence)
	if err != nil {
		return false
	}
	return IsOccurrence(stepper, t.Date, d)
}

// Window returns the server-side expansion window: from the earliest
// anchor up to horizonMonths after today.
func Window(templates []core.Template, today core.Date, horizonMonths int) (core.Date, core.Date) {
	start := today
	for _, t := range templates {
		if !t.Date.IsZero() && t.Date.Before(start) {
			start = t.Date
		}
	}
	end := core.Date{Time: today.AddDate(0, horizonMonths, 0)}
	return start, end
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) core.Date {
	return core.DateOf(time.Now().In(loc))
}
