package store

import (
	"context"
	"fmt"
	"strings"

	"saldo/internal/core"
	"saldo/internal/csvio"
)

// ReplaceAll replaces every account. Accounts without an id or a name are
// skipped; an empty payload is a no-op. Templates are stored verbatim
// apart from missing ids, which are generated.
func (s *Store) ReplaceAll(ctx context.Context, accounts []core.Account) error {
	next := make([]core.Account, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Name) == "" {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		next = append(next, a.Clone())
	}
	if len(next) == 0 {
		return nil
	}

	s.mu.Lock()
	for i := range next {
		if err := s.prepareTemplates(next[i].ID, next[i].Transactions); err != nil {
			s.mu.Unlock()
			return err
		}
		core.SortTemplates(next[i].Transactions)
	}
	s.accounts = next
	for id := range s.histories {
		if _, ok := seen[id]; !ok {
			delete(s.histories, id)
		}
	}
	s.ensureAccount()
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Accounts replaced", "accounts", len(next))
	s.notify()
	return nil
}

// prepareTemplates fills in missing ids and rejects duplicates. Callers
// hold s.mu.
func (s *Store) prepareTemplates(accountID string, ts []core.Template) error {
	seen := make(map[string]struct{}, len(ts))
	for i := range ts {
		if ts[i].ID == "" {
			ts[i].ID = s.newID()
		}
		if ts[i].Recurrence == "" {
			ts[i].Recurrence = core.OneTime
		}
		if _, dup := seen[ts[i].ID]; dup {
			return fmt.Errorf("%w: %s in account %s", core.ErrDuplicateTemplateID, ts[i].ID, accountID)
		}
		seen[ts[i].ID] = struct{}{}
	}
	return nil
}

// ReplaceTransactions replaces all templates of one account. Mirrors in
// other accounts whose counterpart disappeared are unlinked.
func (s *Store) ReplaceTransactions(ctx context.Context, accountID string, templates []core.Template) error {
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return err
	}
	next := make([]core.Template, len(templates))
	for i, t := range templates {
		next[i] = t.Clone()
	}
	if err := s.prepareTemplates(accountID, next); err != nil {
		c.abort()
		return err
	}
	acc.Transactions = next
	unlinked := c.unlinkOrphans(accountID)

	if err := c.commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transactions replaced",
		"account_id", accountID,
		"transactions", len(next),
		"unlinked_transfers", unlinked)
	return nil
}

// ApplyImport commits parsed CSV rows to an account in merge or replace
// mode and returns the counts that were applied.
func (s *Store) ApplyImport(ctx context.Context, accountID string, parsed csvio.ParseResult, mode csvio.Mode) (csvio.Preview, error) {
	c := s.begin()
	acc, err := c.mustAccount(accountID)
	if err != nil {
		c.abort()
		return csvio.Preview{}, err
	}
	preview := csvio.Analyze(acc.Transactions, parsed, mode)
	acc.Transactions = csvio.Apply(acc.Transactions, parsed.ValidRows, mode)
	unlinked := c.unlinkOrphans(accountID)

	if err := c.commit(); err != nil {
		return csvio.Preview{}, err
	}
	s.logger.InfoContext(ctx, "CSV import applied",
		"account_id", accountID,
		"mode", string(mode),
		"new_rows", preview.NewRows,
		"duplicate_rows", preview.DuplicateRows,
		"invalid_rows", preview.InvalidRows,
		"unlinked_transfers", unlinked)
	return preview, nil
}

// unlinkOrphans clears the link of every template in other accounts that
// points into accountID at a template that no longer exists there.
func (c *change) unlinkOrphans(accountID string) int {
	acc, ok := c.account(accountID)
	if !ok {
		return 0
	}
	present := make(map[string]struct{}, len(acc.Transactions))
	for _, t := range acc.Transactions {
		present[t.ID] = struct{}{}
	}

	unlinked := 0
	for _, other := range c.s.accounts {
		if other.ID == accountID {
			continue
		}
		for _, t := range other.Transactions {
			if t.LinkedAccountID != accountID {
				continue
			}
			if _, ok := present[t.LinkedTransactionID]; ok {
				continue
			}
			staged, _ := c.account(other.ID)
			if i := staged.Find(t.ID); i >= 0 {
				staged.Transactions[i].LinkedAccountID = ""
				staged.Transactions[i].LinkedTransactionID = ""
				unlinked++
			}
		}
	}
	return unlinked
}
