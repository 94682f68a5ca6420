package recurrence

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"saldo/internal/core"
)

var allKinds = []core.Recurrence{core.OneTime, core.Daily, core.Weekly, core.BiWeekly, core.Monthly, core.Quarterly, core.Yearly}

func randomTemplate(r *rand.Rand, i int) core.Template {
	anchor := core.NewDate(2020, 1, 1).AddDays(r.IntN(4 * 365))
	// Bias towards month ends to exercise clamping.
	if r.IntN(3) == 0 {
		anchor = core.NewDate(anchor.Year(), anchor.Month(), core.DaysIn(anchor.Year(), anchor.Month()))
	}
	t := core.Template{
		ID:          fmt.Sprintf("t%d", i),
		Date:        anchor,
		Description: "random",
		Amount:      core.Money{Cents: int64(r.IntN(20000) - 10000)},
		Recurrence:  allKinds[r.IntN(len(allKinds))],
	}
	if r.IntN(2) == 0 {
		t.RecurrenceEndDate = anchor.AddDays(r.IntN(3 * 365))
	}
	for range r.IntN(4) {
		t.ExcludedDates = append(t.ExcludedDates, anchor.AddDays(r.IntN(400)))
	}
	if s, err := StepperFor(t.Recurrence); err == nil && r.IntN(2) == 0 {
		// Make sure some exclusions hit real occurrences, anchor included.
		t.ExcludedDates = append(t.ExcludedDates, s.Occurrence(anchor, r.IntN(5)))
	}
	return t
}

func TestOccurrencesBefore_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	e := quietExpander()
	origin := core.NewDate(2019, 1, 1)

	for i := range 300 {
		tmpl := randomTemplate(r, i)
		d := core.NewDate(2020, 1, 1).AddDays(r.IntN(6 * 365))

		want := len(e.ExpandTemplate(context.Background(), tmpl, origin, d.AddDays(-1)))
		if got := OccurrencesBefore(tmpl, d); got != want {
			t.Fatalf("OccurrencesBefore(%+v, %s) = %d, want %d", tmpl, d, got, want)
		}
	}
}

func TestOccurrencesBefore(t *testing.T) {
	monthly := core.Template{ID: "m", Date: core.NewDate(2024, 1, 1), Recurrence: core.Monthly}

	tests := []struct {
		name string
		tmpl core.Template
		d    core.Date
		want int
	}{
		{"before anchor", monthly, core.NewDate(2023, 12, 31), 0},
		{"on anchor", monthly, core.NewDate(2024, 1, 1), 0},
		{"day after anchor", monthly, core.NewDate(2024, 1, 2), 1},
		{"a year later", monthly, core.NewDate(2025, 1, 1), 12},
		{"end date caps count", func() core.Template {
			c := monthly.Clone()
			c.RecurrenceEndDate = core.NewDate(2024, 3, 15)
			return c
		}(), core.NewDate(2030, 1, 1), 3},
		{"exclusions subtract once", func() core.Template {
			c := monthly.Clone()
			c.ExcludedDates = []core.Date{core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 2)}
			return c
		}(), core.NewDate(2024, 4, 1), 2},
		{"one-time", core.Template{Date: core.NewDate(2024, 1, 1), Recurrence: core.OneTime}, core.NewDate(2024, 6, 1), 1},
		{"unknown kind counts anchor", core.Template{Date: core.NewDate(2024, 1, 1), Recurrence: "hourly"}, core.NewDate(2024, 6, 1), 1},
		{"zero anchor", core.Template{Recurrence: core.Daily}, core.NewDate(2024, 6, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OccurrencesBefore(tt.tmpl, tt.d); got != tt.want {
				t.Errorf("OccurrencesBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOccurs(t *testing.T) {
	tmpl := core.Template{
		ID:                "m",
		Date:              core.NewDate(2024, 1, 31),
		Recurrence:        core.Monthly,
		RecurrenceEndDate: core.NewDate(2024, 5, 1),
	}

	tests := []struct {
		date core.Date
		want bool
	}{
		{core.NewDate(2024, 1, 31), true},
		{core.NewDate(2024, 2, 29), true},
		{core.NewDate(2024, 3, 31), true},
		{core.NewDate(2024, 3, 30), false},
		{core.NewDate(2024, 4, 30), true},
		{core.NewDate(2024, 5, 31), false},
		{core.NewDate(2023, 12, 31), false},
	}
	for _, tt := range tests {
		if got := Occurs(tmpl, tt.date); got != tt.want {
			t.Errorf("Occurs(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}

	oneTime := core.Template{ID: "o", Date: core.NewDate(2024, 1, 1), Recurrence: core.OneTime}
	if Occurs(oneTime, core.NewDate(2024, 1, 2)) {
		t.Errorf("Occurs(one-time, next day) = true, want false")
	}
}
