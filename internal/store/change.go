package store

import (
	"fmt"

	"saldo/internal/core"
)

// change stages copies of every account a mutation touches. Nothing is
// visible to readers until commit writes all staged accounts back at once,
// so a failure while staging leaves the store untouched.
type change struct {
	s         *Store
	staged    map[string]*core.Account
	order     []string
	histories map[string]History
}

// begin locks the store for writing. The caller must end with commit or
// abort.
func (s *Store) begin() *change {
	s.mu.Lock()
	return &change{s: s, staged: make(map[string]*core.Account)}
}

// account returns the staged copy of an account, staging it on first use.
func (c *change) account(id string) (*core.Account, bool) {
	if acc, ok := c.staged[id]; ok {
		return acc, true
	}
	i := c.s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	acc := c.s.accounts[i].Clone()
	c.staged[id] = &acc
	c.order = append(c.order, id)
	return &acc, true
}

func (c *change) mustAccount(id string) (*core.Account, error) {
	acc, ok := c.account(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return acc, nil
}

func (c *change) abort() {
	c.s.mu.Unlock()
}

// commit validates the staged accounts, publishes them and notifies
// listeners once.
func (c *change) commit() error {
	for _, id := range c.order {
		acc := c.staged[id]
		seen := make(map[string]struct{}, len(acc.Transactions))
		for _, t := range acc.Transactions {
			if _, dup := seen[t.ID]; dup {
				c.s.mu.Unlock()
				return fmt.Errorf("%w: %s in account %s", core.ErrDuplicateTemplateID, t.ID, id)
			}
			seen[t.ID] = struct{}{}
		}
	}
	for _, id := range c.order {
		acc := c.staged[id]
		core.SortTemplates(acc.Transactions)
		if i := c.s.indexOf(id); i >= 0 {
			c.s.accounts[i] = *acc
		}
	}
	for id, h := range c.histories {
		c.s.histories[id] = h
	}
	c.s.version++
	c.s.mu.Unlock()

	c.s.notify()
	return nil
}

// recordHistory stages an autocomplete update for the account.
func (c *change) recordHistory(accountID, payee, description string) {
	if c.histories == nil {
		c.histories = make(map[string]History)
	}
	h, ok := c.histories[accountID]
	if !ok {
		h = c.s.histories[accountID].Clone()
	}
	c.histories[accountID] = h.Record(payee, description, c.s.historyMax)
}

func removeTemplate(acc *core.Account, id string) (core.Template, bool) {
	i := acc.Find(id)
	if i < 0 {
		return core.Template{}, false
	}
	t := acc.Transactions[i]
	acc.Transactions = append(acc.Transactions[:i], acc.Transactions[i+1:]...)
	return t, true
}
