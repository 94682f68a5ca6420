package store

import (
	"context"
	"fmt"
	"strings"

	"saldo/internal/core"
)

// mirrorOf builds the counterpart of t living in another account.
func mirrorOf(t core.Template, ownerAccountID, mirrorID string) core.Template {
	m := t.Clone()
	m.ID = mirrorID
	m.Amount = t.Amount.Neg()
	m.LinkedTransactionID = t.ID
	m.LinkedAccountID = ownerAccountID
	return m
}

// syncMirror copies the shared fields of t onto its mirror.
func syncMirror(mirror *core.Template, t core.Template) {
	mirror.Date = t.Date
	mirror.Description = t.Description
	mirror.Payee = t.Payee
	mirror.Notes = t.Notes
	mirror.Amount = t.Amount.Neg()
	mirror.Recurrence = t.Recurrence
	mirror.RecurrenceEndDate = t.RecurrenceEndDate
	mirror.ExcludedDates = t.Clone().ExcludedDates
}

// checkTarget validates an explicit transfer destination.
func (c *change) checkTarget(accountID, target string) error {
	if target == accountID {
		return fmt.Errorf("%w: cannot transfer to the same account", ErrTransferTarget)
	}
	if _, ok := c.account(target); !ok {
		return fmt.Errorf("%w: %s", ErrTransferTarget, target)
	}
	return nil
}

// linkNew creates a fresh mirror of t in target and points t at it.
func (c *change) linkNew(ownerID string, t *core.Template, target string) {
	mirrorID := c.s.newID()
	t.LinkedTransactionID = mirrorID
	t.LinkedAccountID = target
	acc, ok := c.account(target)
	if !ok {
		return
	}
	acc.Transactions = append(acc.Transactions, mirrorOf(*t, ownerID, mirrorID))
}

// dropMirror deletes the mirror of t. A missing account or mirror is
// treated as already gone.
func (c *change) dropMirror(ctx context.Context, t core.Template) {
	if !t.IsTransfer() {
		return
	}
	acc, ok := c.account(t.LinkedAccountID)
	if !ok {
		c.s.logger.DebugContext(ctx, "Linked account missing, skipping mirror delete",
			"template_id", t.ID,
			"linked_account_id", t.LinkedAccountID)
		return
	}
	if _, ok := removeTemplate(acc, t.LinkedTransactionID); !ok {
		c.s.logger.DebugContext(ctx, "Linked transaction missing, skipping mirror delete",
			"template_id", t.ID,
			"linked_transaction_id", t.LinkedTransactionID)
	}
}

// mirror returns the staged mirror of t, or nil when it no longer exists.
func (c *change) mirror(t core.Template) *core.Template {
	if !t.IsTransfer() {
		return nil
	}
	acc, ok := c.account(t.LinkedAccountID)
	if !ok {
		return nil
	}
	i := acc.Find(t.LinkedTransactionID)
	if i < 0 {
		return nil
	}
	return &acc.Transactions[i]
}

// AddTemplate validates draft, assigns it a new id and stores it in the
// account. A non-empty transferTo creates the mirrored template in that
// account in the same commit.
func (s *Store) AddTemplate(ctx context.Context, accountID string, draft core.Template, transferTo string) (core.Template, error) {
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return core.Template{}, err
	}

	t := normalizeDraft(draft)
	t.ID = s.newID()
	t.LinkedTransactionID, t.LinkedAccountID = "", ""
	if err := t.Validate(); err != nil {
		c.abort()
		return core.Template{}, err
	}
	if transferTo != "" {
		if err := c.checkTarget(accountID, transferTo); err != nil {
			c.abort()
			return core.Template{}, err
		}
		c.linkNew(accountID, &t, transferTo)
	}
	acc.Transactions = append(acc.Transactions, t)
	c.recordHistory(accountID, t.Payee, t.Description)

	if err := c.commit(); err != nil {
		return core.Template{}, err
	}
	s.logger.InfoContext(ctx, "Transaction created",
		"account_id", accountID,
		"template_id", t.ID,
		"recurrence", string(t.Recurrence),
		"transfer_to", transferTo)
	return t.Clone(), nil
}

// UpdateTemplate replaces the editable fields of a template and keeps its
// transfer pair in step:
//
//   - linked, transferTo empty: the mirror is deleted and the link cleared
//   - unlinked, transferTo set: a new mirror is created
//   - linked elsewhere: the old mirror is deleted and a new one created
//   - linked to the same account: the mirror receives the same edit
//
// Excluded dates are kept unless the draft carries its own.
func (s *Store) UpdateTemplate(ctx context.Context, accountID, id string, draft core.Template, transferTo string) (core.Template, error) {
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return core.Template{}, err
	}
	i := acc.Find(id)
	if i < 0 {
		c.abort()
		return core.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	old := acc.Transactions[i]

	t := normalizeDraft(draft)
	t.ID = old.ID
	t.LinkedTransactionID = old.LinkedTransactionID
	t.LinkedAccountID = old.LinkedAccountID
	if draft.ExcludedDates == nil {
		t.ExcludedDates = old.Clone().ExcludedDates
	}
	if err := t.Validate(); err != nil {
		c.abort()
		return core.Template{}, err
	}

	wasLinked := old.IsTransfer()
	switch {
	case wasLinked && transferTo == "":
		c.dropMirror(ctx, old)
		t.LinkedTransactionID, t.LinkedAccountID = "", ""
	case !wasLinked && transferTo != "":
		if err := c.checkTarget(accountID, transferTo); err != nil {
			c.abort()
			return core.Template{}, err
		}
		c.linkNew(accountID, &t, transferTo)
	case wasLinked && transferTo != old.LinkedAccountID:
		if err := c.checkTarget(accountID, transferTo); err != nil {
			c.abort()
			return core.Template{}, err
		}
		c.dropMirror(ctx, old)
		c.linkNew(accountID, &t, transferTo)
	case wasLinked:
		if m := c.mirror(t); m != nil {
			syncMirror(m, t)
		} else {
			s.logger.DebugContext(ctx, "Mirror missing, skipping propagation",
				"template_id", t.ID,
				"linked_account_id", t.LinkedAccountID)
		}
	}
	// dropMirror may have shifted indices within acc.
	if j := acc.Find(id); j >= 0 {
		acc.Transactions[j] = t
	} else {
		acc.Transactions = append(acc.Transactions, t)
	}
	c.recordHistory(accountID, t.Payee, t.Description)

	if err := c.commit(); err != nil {
		return core.Template{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		"account_id", accountID,
		"template_id", id,
		"transfer_to", transferTo)
	return t.Clone(), nil
}

// DeleteTemplate removes a template and, for transfers, its mirror.
func (s *Store) DeleteTemplate(ctx context.Context, accountID, id string) error {
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return err
	}
	t, ok := removeTemplate(acc, id)
	if !ok {
		c.abort()
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	c.dropMirror(ctx, t)

	if err := c.commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", "account_id", accountID, "template_id", id)
	return nil
}

// normalizeDraft trims text fields and defaults the recurrence.
func normalizeDraft(d core.Template) core.Template {
	t := d.Clone()
	t.Description = strings.TrimSpace(t.Description)
	t.Payee = strings.TrimSpace(t.Payee)
	t.Notes = strings.TrimSpace(t.Notes)
	if t.Recurrence == "" {
		t.Recurrence = core.OneTime
	}
	if !t.Recurrence.IsRecurring() {
		t.RecurrenceEndDate = core.Date{}
	}
	return t
}
