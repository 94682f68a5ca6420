package sheets

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// AccountMirror replaces the spreadsheet copy of one account with its
	// current templates and returns a reference to the written range.
	AccountMirror interface {
		MirrorAccount(ctx context.Context, acc core.Account) (ref string, err error)
	}

	// AccountRemover drops the copy of an account that no longer exists.
	AccountRemover interface {
		RemoveAccount(ctx context.Context, accountID string) error
	}
)

// Header is the first row of every mirrored account tab.
var Header = []string{
	"ID", "Date", "Payee", "Description", "Notes", "Amount",
	"Recurrence", "Recurrence End", "Excluded Dates", "Linked Account",
}

// Rows renders the account's templates as sheet rows, header first.
// Amounts are plain decimals so the sheet can sum them.
func Rows(acc core.Account) [][]string {
	out := make([][]string, 0, len(acc.Transactions)+1)
	out = append(out, Header)
	for _, t := range acc.Transactions {
		excluded := ""
		for i, d := range t.ExcludedDates {
			if i > 0 {
				excluded += " "
			}
			excluded += d.String()
		}
		recurrence := string(t.Recurrence)
		if recurrence == "" {
			recurrence = string(core.OneTime)
		}
		out = append(out, []string{
			t.ID,
			t.Date.String(),
			t.Payee,
			t.Description,
			t.Notes,
			t.Amount.String(),
			recurrence,
			t.RecurrenceEndDate.String(),
			excluded,
			t.LinkedAccountID,
		})
	}
	return out
}
