package ledger

import (
	"context"

	"saldo/internal/core"
)

// Point is one day of an income/expense series. Expense is positive.
type Point struct {
	Date    core.Date  `json:"date"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
	Balance core.Money `json:"balance"`
}

type Series struct {
	Points       []Point    `json:"points"`
	TotalIncome  core.Money `json:"totalIncome"`
	TotalExpense core.Money `json:"totalExpense"`
	Net          core.Money `json:"net"`
}

// Series returns one point per day in [start, end], including days with
// no activity. Balance is the running end-of-day balance.
func (a *Aggregator) Series(ctx context.Context, templates []core.Template, start, end core.Date) Series {
	var s Series
	if end.Before(start) {
		return s
	}
	income := make(map[string]core.Money)
	expense := make(map[string]core.Money)
	for _, inst := range a.expander.Expand(ctx, templates, start, end) {
		key := inst.Date.String()
		if inst.Amount.Cents > 0 {
			income[key] = income[key].Add(inst.Amount)
		} else {
			expense[key] = expense[key].Add(inst.Amount.Abs())
		}
	}

	balance := BalanceBefore(templates, start)
	days := end.DaysSince(start) + 1
	s.Points = make([]Point, 0, days)
	for i := range days {
		day := start.AddDays(i)
		key := day.String()
		p := Point{Date: day, Income: income[key], Expense: expense[key]}
		p.Net = p.Income.Add(p.Expense.Neg())
		balance = balance.Add(p.Net)
		p.Balance = balance
		s.Points = append(s.Points, p)

		s.TotalIncome = s.TotalIncome.Add(p.Income)
		s.TotalExpense = s.TotalExpense.Add(p.Expense)
	}
	s.Net = s.TotalIncome.Add(s.TotalExpense.Neg())
	return s
}
