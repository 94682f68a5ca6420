package core

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortTemplates orders templates in place by date, then description
// (locale collation), then amount. Ties fall back to id so the order is
// deterministic.
func SortTemplates(ts []Template) {
	col := collate.New(language.Und)
	slices.SortStableFunc(ts, func(a, b Template) int {
		return compareTemplates(col, a, b)
	})
}

// Sorted returns a sorted copy of ts.
func Sorted(ts []Template) []Template {
	out := slices.Clone(ts)
	SortTemplates(out)
	return out
}

func compareTemplates(col *collate.Collator, a, b Template) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if a.Description != b.Description {
		if c := col.CompareString(a.Description, b.Description); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.Amount.Cents, b.Amount.Cents); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortInstances orders instances by date, then id.
func SortInstances(is []Instance) {
	slices.SortStableFunc(is, func(a, b Instance) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
