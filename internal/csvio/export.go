package csvio

import (
	"io"
	"strings"

	"saldo/internal/core"
)

// Header is the column set written by every export.
var Header = []string{"date", "payee", "description", "notes", "amount", "recurrence"}

// ToCSV renders rows with the canonical header and a trailing newline.
// Text columns are always quoted; date, amount and recurrence never are.
func ToCSV(rows []core.Template) string {
	var b strings.Builder
	b.WriteString(strings.Join(Header, ","))
	b.WriteByte('\n')
	for _, t := range rows {
		recurrence := t.Recurrence
		if recurrence == "" {
			recurrence = core.OneTime
		}
		b.WriteString(t.Date.String())
		b.WriteByte(',')
		b.WriteString(quote(t.Payee))
		b.WriteByte(',')
		b.WriteString(quote(t.Description))
		b.WriteByte(',')
		b.WriteString(quote(t.Notes))
		b.WriteByte(',')
		b.WriteString(t.Amount.Decimal().String())
		b.WriteByte(',')
		b.WriteString(string(recurrence))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteCSV writes ToCSV(rows) to w.
func WriteCSV(w io.Writer, rows []core.Template) error {
	_, err := io.WriteString(w, ToCSV(rows))
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FilterRange keeps rows whose anchor date lies in [from, to]. A zero
// bound is open.
func FilterRange(rows []core.Template, from, to core.Date) []core.Template {
	out := make([]core.Template, 0, len(rows))
	for _, t := range rows {
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !to.IsZero() && t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ExportFilename names an export the way the download dialog does:
// finance-transactions[-from-X][-to-Y]-export-TODAY.csv.
func ExportFilename(from, to, today core.Date) string {
	name := "finance-transactions"
	if !from.IsZero() {
		name += "-from-" + from.String()
	}
	if !to.IsZero() {
		name += "-to-" + to.String()
	}
	return name + "-export-" + today.String() + ".csv"
}
