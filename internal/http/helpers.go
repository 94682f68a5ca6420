package http

import (
	"strings"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

// sanitizeInput removes control characters other than tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeTemplate cleans the free-text fields of a draft.
func sanitizeTemplate(t core.Template) core.Template {
	t.Description = sanitizeInput(t.Description)
	t.Payee = sanitizeInput(t.Payee)
	t.Notes = sanitizeInput(t.Notes)
	return t
}

// categoryWindow picks the breakdown window: the last N days when days is
// set, the given month otherwise.
func categoryWindow(today core.Date, days int, month MonthParams) (core.Date, core.Date) {
	if days > 0 {
		return ledger.LastDays(today, days)
	}
	return ledger.MonthWindow(month.Year, month.Month)
}
