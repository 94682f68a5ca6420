package ledger

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderSeriesChart draws income, expense and running balance of a series
// as a PNG line chart and returns the raw bytes.
func RenderSeriesChart(s Series) ([]byte, error) {
	if len(s.Points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(s.Points))
	}

	xValues := make([]time.Time, len(s.Points))
	incomeY := make([]float64, len(s.Points))
	expenseY := make([]float64, len(s.Points))
	balanceY := make([]float64, len(s.Points))
	lo, hi := 0.0, 0.0
	for i, p := range s.Points {
		xValues[i] = p.Date.Time
		incomeY[i] = p.Income.Euros()
		expenseY[i] = p.Expense.Euros()
		balanceY[i] = p.Balance.Euros()
		for _, v := range []float64{incomeY[i], expenseY[i], balanceY[i]} {
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	incomeSeries := chart.TimeSeries{
		Name: "Income",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"),
			StrokeWidth: 1.5,
		},
		XValues: xValues,
		YValues: incomeY,
	}
	expenseSeries := chart.TimeSeries{
		Name: "Expense",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("dc2626"),
			StrokeWidth: 1.5,
		},
		XValues: xValues,
		YValues: expenseY,
	}
	balanceSeries := chart.TimeSeries{
		Name: "Balance",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("2563eb"),
			StrokeWidth:     2.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: balanceY,
	}

	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
	// go-chart refuses a zero-height range.
	if hi == lo {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s to %s", s.Points[0].Date, s.Points[len(s.Points)-1].Date),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan")
				}
				return ""
			},
		},
		YAxis:  yAxis,
		Series: []chart.Series{incomeSeries, expenseSeries, balanceSeries},
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
