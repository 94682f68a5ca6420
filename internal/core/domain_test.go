package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-01", true},
		{"2024-02-29", true},
		{" 2024-12-31 ", true},
		{"2023-02-29", false},
		{"2024-1-01", false},
		{"2024/01/01", false},
		{"20240101", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %v", tc.in, d)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
		}
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		if got := DaysIn(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysIn(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestParseRecurrence(t *testing.T) {
	cases := []struct {
		in   string
		want Recurrence
		ok   bool
	}{
		{"", OneTime, true},
		{"Monthly", Monthly, true},
		{" bi-weekly ", BiWeekly, true},
		{"fortnightly", "", false},
	}
	for _, tc := range cases {
		got, err := ParseRecurrence(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRecurrence) {
			t.Fatalf("%q expected ErrInvalidRecurrence, got %v", tc.in, err)
		}
	}
}

func TestTemplateValidate(t *testing.T) {
	good := Template{
		ID:          "t1",
		Date:        NewDate(2024, 1, 1),
		Description: "Rent",
		Amount:      Money{Cents: -50000},
		Recurrence:  Monthly,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	long := good.Clone()
	long.Description = strings.Repeat("rent and utilities ", 40)
	if err := long.Validate(); err != nil {
		t.Fatalf("expected long description to be accepted, got %v", err)
	}

	mutate := func(f func(*Template)) Template {
		c := good.Clone()
		f(&c)
		return c
	}
	bads := []struct {
		name string
		tmpl Template
		want error
	}{
		{"zero date", mutate(func(t *Template) { t.Date = Date{} }), ErrInvalidDate},
		{"blank description", mutate(func(t *Template) { t.Description = "   " }), ErrEmptyDescription},
		{"zero amount", mutate(func(t *Template) { t.Amount = Money{} }), ErrZeroAmount},
		{"unknown recurrence", mutate(func(t *Template) { t.Recurrence = "hourly" }), ErrInvalidRecurrence},
		{"end before anchor", mutate(func(t *Template) { t.RecurrenceEndDate = NewDate(2023, 12, 31) }), ErrEndBeforeAnchor},
		{"half link", mutate(func(t *Template) { t.LinkedAccountID = "acc" }), ErrIncompleteLink},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tmpl.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTemplateExclude(t *testing.T) {
	tmpl := Template{Date: NewDate(2024, 1, 1)}
	tmpl.Exclude(NewDate(2024, 3, 1))
	tmpl.Exclude(NewDate(2024, 2, 1))
	tmpl.Exclude(NewDate(2024, 3, 1))
	if len(tmpl.ExcludedDates) != 2 {
		t.Fatalf("expected 2 excluded dates, got %d", len(tmpl.ExcludedDates))
	}
	if tmpl.ExcludedDates[0].String() != "2024-02-01" {
		t.Fatalf("expected sorted exclusions, got %v", tmpl.ExcludedDates)
	}
	clone := tmpl.Clone()
	clone.ExcludedDates[0] = NewDate(2030, 1, 1)
	if tmpl.ExcludedDates[0].String() != "2024-02-01" {
		t.Fatalf("clone shares excluded dates with original")
	}
}

func TestTemplateJSON(t *testing.T) {
	in := `{"id":"a","date":"2024-01-31","description":"Gym","payee":"","notes":"","amount":-29.9,"recurrence":"monthly","excludedDates":["2024-02-29"]}`
	var tmpl Template
	if err := json.Unmarshal([]byte(in), &tmpl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tmpl.Amount.Cents != -2990 {
		t.Fatalf("expected -2990 cents, got %d", tmpl.Amount.Cents)
	}
	if !tmpl.RecurrenceEndDate.IsZero() {
		t.Fatalf("expected zero end date")
	}
	out, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"a","date":"2024-01-31","description":"Gym","payee":"","notes":"","amount":-29.9,"recurrence":"monthly","excludedDates":["2024-02-29"]}`
	if string(out) != want {
		t.Fatalf("marshal mismatch\n got: %s\nwant: %s", out, want)
	}
}

func TestInstanceTemplateID(t *testing.T) {
	anchor := Instance{Template: Template{ID: "a"}}
	gen := Instance{Template: Template{ID: "a-recur-2024-02-01"}, IsRecurring: true, OriginalID: "a"}
	if anchor.TemplateID() != "a" || gen.TemplateID() != "a" {
		t.Fatalf("TemplateID mismatch: %q %q", anchor.TemplateID(), gen.TemplateID())
	}
}
