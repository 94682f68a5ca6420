package ledger

import (
	"context"
	"fmt"

	"saldo/internal/core"
)

// GridCells is the fixed size of a month grid: six full weeks.
const GridCells = 42

type Cell struct {
	Date    core.Date  `json:"date"`
	InMonth bool       `json:"inMonth"`
	Amount  core.Money `json:"amount"`
	Balance core.Money `json:"balance"`
}

type MonthSummary struct {
	StartingBalance core.Money `json:"startingBalance"`
	Change          core.Money `json:"change"`
	EndingBalance   core.Money `json:"endingBalance"`
}

type MonthGrid struct {
	Year    int          `json:"year"`
	Month   int          `json:"month"`
	Cells   []Cell       `json:"cells"`
	Summary MonthSummary `json:"summary"`
}

// MonthGrid builds the Sunday-first 42-cell calendar for year/month.
//
// In-month cells carry the running balance: the balance before the first
// of the month plus every daily total up to and including that day.
// Leading and trailing cells from adjacent months are computed on their
// own as balance-before(day) plus that day's amount.
func (a *Aggregator) MonthGrid(ctx context.Context, templates []core.Template, year, month int) (MonthGrid, error) {
	if month < 1 || month > 12 {
		return MonthGrid{}, fmt.Errorf("invalid month %d", month)
	}
	first := core.NewDate(year, month, 1)
	gridStart := first.AddDays(-first.Weekday())
	gridEnd := gridStart.AddDays(GridCells - 1)

	totals := a.DailyTotals(ctx, templates, gridStart, gridEnd)
	starting := BalanceBefore(templates, first)

	grid := MonthGrid{
		Year:  year,
		Month: month,
		Cells: make([]Cell, 0, GridCells),
	}
	running := starting
	var change core.Money
	for i := range GridCells {
		day := gridStart.AddDays(i)
		amount := totals[day.String()]
		cell := Cell{Date: day, Amount: amount}
		if day.Month() == month && day.Year() == year {
			running = running.Add(amount)
			change = change.Add(amount)
			cell.InMonth = true
			cell.Balance = running
		} else {
			cell.Balance = BalanceBefore(templates, day).Add(amount)
		}
		grid.Cells = append(grid.Cells, cell)
	}
	grid.Summary = MonthSummary{
		StartingBalance: starting,
		Change:          change,
		EndingBalance:   starting.Add(change),
	}
	return grid, nil
}
