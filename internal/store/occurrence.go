package store

import (
	"context"
	"fmt"
	"slices"

	"saldo/internal/core"
	"saldo/internal/recurrence"
)

// truncateAt removes the occurrence at x and everything after it. It
// reports deleted when no occurrence would remain, in which case the
// whole template should go.
func truncateAt(t core.Template, x core.Date) (core.Template, bool) {
	if !t.Recurrence.IsRecurring() || !x.After(t.Date) {
		return t, true
	}
	if recurrence.OccurrencesBefore(t, x) == 0 {
		return t, true
	}
	tr := t.Clone()
	tr.RecurrenceEndDate = x.AddDays(-1)
	tr.ExcludedDates = slices.DeleteFunc(tr.ExcludedDates, func(d core.Date) bool {
		return !d.Before(x)
	})
	if len(tr.ExcludedDates) == 0 {
		tr.ExcludedDates = nil
	}
	return tr, false
}

func (c *change) occurrence(accountID, id string, date core.Date) (*core.Account, int, error) {
	acc, err := c.mustAccount(accountID)
	if err != nil {
		return nil, -1, err
	}
	i := acc.Find(id)
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if !recurrence.Occurs(acc.Transactions[i], date) {
		return nil, -1, fmt.Errorf("%w: %s on %s", ErrOccurrenceNotFound, id, date)
	}
	return acc, i, nil
}

// DeleteOccurrence removes the occurrence of a template at date and every
// later one. When nothing would remain before date the template is deleted
// outright; otherwise its series ends the day before date. A transfer's
// mirror receives the same cut in the same commit. It reports whether the
// template was deleted.
func (s *Store) DeleteOccurrence(ctx context.Context, accountID, id string, date core.Date) (bool, error) {
	c := s.begin()
	acc, i, err := c.occurrence(accountID, id, date)
	if err != nil {
		c.abort()
		return false, err
	}
	t := acc.Transactions[i]
	truncated, deleted := truncateAt(t, date)

	if deleted {
		removeTemplate(acc, id)
		c.dropMirror(ctx, t)
	} else {
		acc.Transactions[i] = truncated
		if m := c.mirror(truncated); m != nil {
			syncMirror(m, truncated)
		}
	}

	if err := c.commit(); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "Transaction occurrence deleted",
		"account_id", accountID,
		"template_id", id,
		"date", date.String(),
		"template_deleted", deleted,
		"recurrence_end_date", truncated.RecurrenceEndDate.String())
	return deleted, nil
}

// ExcludeOccurrence skips a single occurrence without touching the rest
// of the series. The mirror of a transfer is excluded too.
func (s *Store) ExcludeOccurrence(ctx context.Context, accountID, id string, date core.Date) error {
	c := s.begin()
	acc, i, err := c.occurrence(accountID, id, date)
	if err != nil {
		c.abort()
		return err
	}
	t := &acc.Transactions[i]
	t.Exclude(date)
	if m := c.mirror(*t); m != nil {
		syncMirror(m, *t)
	}

	if err := c.commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction occurrence excluded",
		"account_id", accountID,
		"template_id", id,
		"date", date.String())
	return nil
}

// ClearMonth deletes every template of the account whose anchor date falls
// in year/month, together with transfer mirrors. Recurring templates
// anchored in other months are kept even when they have occurrences in the
// month. It returns the number of templates removed from the account.
func (s *Store) ClearMonth(ctx context.Context, accountID string, year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %d", core.ErrInvalidDate, month)
	}
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return 0, err
	}

	var removed []core.Template
	kept := acc.Transactions[:0]
	for _, t := range acc.Transactions {
		if t.Date.Year() == year && t.Date.Month() == month {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	acc.Transactions = kept
	if len(removed) == 0 {
		c.abort()
		return 0, nil
	}
	for _, t := range removed {
		c.dropMirror(ctx, t)
	}

	if err := c.commit(); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Month cleared",
		"account_id", accountID,
		"year", year,
		"month", month,
		"removed", len(removed))
	return len(removed), nil
}
