// Package ledger aggregates expanded instances into daily totals, running
// balances, month grids and reporting breakdowns.
package ledger

import (
	"context"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/recurrence"
)

// Aggregator computes balances and views over a template set. Every view
// goes through the same Expander so they cannot drift apart.
type Aggregator struct {
	expander *recurrence.Expander
}

func NewAggregator(expander *recurrence.Expander) *Aggregator {
	if expander == nil {
		expander = recurrence.NewExpander()
	}
	return &Aggregator{expander: expander}
}

// NewViewAggregator returns an aggregator whose expander never truncates.
// Running balances come from BalanceBefore, which is closed form, so a
// truncated expansion would make day-by-day balances drift from it.
func NewViewAggregator(logger *slog.Logger) *Aggregator {
	return NewAggregator(recurrence.NewExpander(
		recurrence.WithCap(0),
		recurrence.WithLogger(logger)))
}

// Expander returns the expander used for every view.
func (a *Aggregator) Expander() *recurrence.Expander {
	return a.expander
}

// DailyTotals groups instances by date and sums their amounts. Dates with
// no instances are absent from the map.
func DailyTotals(instances []core.Instance) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, inst := range instances {
		key := inst.Date.String()
		totals[key] = totals[key].Add(inst.Amount)
	}
	return totals
}

// DailyTotals expands templates over [start, end] and groups the result by date.
func (a *Aggregator) DailyTotals(ctx context.Context, templates []core.Template, start, end core.Date) map[string]core.Money {
	return DailyTotals(a.expander.Expand(ctx, templates, start, end))
}

// BalanceBefore is the sum of every instance dated strictly before d,
// computed from anchors and occurrence counts rather than by expansion.
func BalanceBefore(templates []core.Template, d core.Date) core.Money {
	var total core.Money
	for _, t := range templates {
		if n := recurrence.OccurrencesBefore(t, d); n > 0 {
			total = total.Add(t.Amount.Times(n))
		}
	}
	return total
}
