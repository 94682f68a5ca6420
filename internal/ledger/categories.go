package ledger

import (
	"context"
	"slices"
	"strings"

	"saldo/internal/core"
)

// Uncategorized labels instances whose description is blank.
const Uncategorized = "Uncategorized"

type Category struct {
	Name  string     `json:"name"`
	Total core.Money `json:"total"`
}

// Breakdown splits a window's instances by description into expenses and
// income. Expense totals are reported as positive values.
type Breakdown struct {
	Start        core.Date  `json:"start"`
	End          core.Date  `json:"end"`
	Expenses     []Category `json:"expenses"`
	Income       []Category `json:"income"`
	TotalExpense core.Money `json:"totalExpense"`
	TotalIncome  core.Money `json:"totalIncome"`
}

// LastDays returns the inclusive window of n days ending on today.
func LastDays(today core.Date, n int) (core.Date, core.Date) {
	if n < 1 {
		n = 1
	}
	return today.AddDays(-(n - 1)), today
}

// MonthWindow returns the first and last day of year/month.
func MonthWindow(year, month int) (core.Date, core.Date) {
	return core.NewDate(year, month, 1), core.NewDate(year, month, core.DaysIn(year, month))
}

// Categories groups the instances in [start, end] by description.
func (a *Aggregator) Categories(ctx context.Context, templates []core.Template, start, end core.Date) Breakdown {
	return Categorize(a.expander.Expand(ctx, templates, start, end), start, end)
}

// Categorize groups already expanded instances. Both lists are sorted by
// total descending, then by name.
func Categorize(instances []core.Instance, start, end core.Date) Breakdown {
	expenses := make(map[string]core.Money)
	income := make(map[string]core.Money)
	b := Breakdown{Start: start, End: end}

	for _, inst := range instances {
		name := strings.TrimSpace(inst.Description)
		if name == "" {
			name = Uncategorized
		}
		switch {
		case inst.Amount.Cents < 0:
			expenses[name] = expenses[name].Add(inst.Amount.Abs())
			b.TotalExpense = b.TotalExpense.Add(inst.Amount.Abs())
		case inst.Amount.Cents > 0:
			income[name] = income[name].Add(inst.Amount)
			b.TotalIncome = b.TotalIncome.Add(inst.Amount)
		}
	}
	b.Expenses = sortedCategories(expenses)
	b.Income = sortedCategories(income)
	return b
}

func sortedCategories(m map[string]core.Money) []Category {
	out := make([]Category, 0, len(m))
	for name, total := range m {
		out = append(out, Category{Name: name, Total: total})
	}
	slices.SortFunc(out, func(a, b Category) int {
		if a.Total.Cents != b.Total.Cents {
			if a.Total.Cents > b.Total.Cents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
