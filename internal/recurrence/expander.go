package recurrence

import (
	"context"
	"log/slog"

	"saldo/internal/core"
)

// IDStyle selects how synthetic instance ids embed the occurrence date.
type IDStyle int

const (
	// ClientIDs produces "{id}-recur-{date}".
	ClientIDs IDStyle = iota
	// ServerIDs produces "{id}-{date}".
	ServerIDs
)

// DefaultCap bounds generated instances per template in server-side expansion.
const DefaultCap = 1000

// Expander projects templates into dated instances over an inclusive window.
type Expander struct {
	logger *slog.Logger
	style  IDStyle
	cap    int
}

type Option func(*Expander)

func WithIDStyle(style IDStyle) Option {
	return func(e *Expander) { e.style = style }
}

// WithCap limits generated occurrences per template. Zero disables the cap.
func WithCap(n int) Option {
	return func(e *Expander) { e.cap = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) { e.logger = logger }
}

func NewExpander(opts ...Option) *Expander {
	e := &Expander{logger: slog.Default(), style: ClientIDs}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns every instance dated start <= date <= end, sorted by date
// then id. Templates with anomalies contribute what they safely can and
// never abort the expansion of the others.
func (e *Expander) Expand(ctx context.Context, templates []core.Template, start, end core.Date) []core.Instance {
	var out []core.Instance
	for _, t := range templates {
		out = append(out, e.ExpandTemplate(ctx, t, start, end)...)
	}
	core.SortInstances(out)

	e.logger.DebugContext(ctx, "Expanded templates",
		"templates", len(templates),
		"instances", len(out),
		"start", start.String(),
		"end", end.String())
	return out
}

// ExpandTemplate expands a single template; see Expand.
func (e *Expander) ExpandTemplate(ctx context.Context, t core.Template, start, end core.Date) []core.Instance {
	if t.Date.IsZero() {
		e.logger.WarnContext(ctx, "Skipping template with invalid anchor date",
			"template_id", t.ID,
			"recurrence", string(t.Recurrence))
		return nil
	}
	if end.Before(start) {
		return nil
	}

	recurring := t.Recurrence.IsRecurring()
	last := end
	if recurring && !t.RecurrenceEndDate.IsZero() && t.RecurrenceEndDate.Before(last) {
		last = t.RecurrenceEndDate
	}

	var out []core.Instance
	if t.Date.InRange(start, last) && !t.IsExcluded(t.Date) {
		out = append(out, core.Instance{Template: t.Clone()})
	}
	if !recurring {
		return out
	}

	stepper, err := StepperFor(t.Recurrence)
	if err != nil {
		e.logger.WarnContext(ctx, "Skipping recurrence for template",
			"template_id", t.ID,
			"recurrence", string(t.Recurrence),
			"reason", err.Error())
		return out
	}

	// Seek straight to the first occurrence inside the window.
	n := max(stepper.CountBefore(t.Date, start), 1)
	generated := 0
	for ; ; n++ {
		d := stepper.Occurrence(t.Date, n)
		if d.After(last) {
			break
		}
		if e.cap > 0 && generated >= e.cap {
			e.logger.WarnContext(ctx, "Recurrence cap reached, truncating series",
				"template_id", t.ID,
				"recurrence", string(t.Recurrence),
				"cap", e.cap,
				"next_date", d.String())
			break
		}
		generated++
		if t.IsExcluded(d) {
			continue
		}
		out = append(out, e.occurrence(t, d))
	}
	return out
}

func (e *Expander) occurrence(t core.Template, d core.Date) core.Instance {
	inst := core.Instance{
		Template:    t.Clone(),
		IsRecurring: true,
		OriginalID:  t.ID,
	}
	inst.Date = d
	inst.ID = InstanceID(t.ID, d, e.style)
	return inst
}

// InstanceID builds the deterministic synthetic id of a generated occurrence.
func InstanceID(templateID string, d core.Date, style IDStyle) string {
	if style == ServerIDs {
		return templateID + "-" + d.String()
	}
	return templateID + "-recur-" + d.String()
}
