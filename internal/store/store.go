// Package store holds the in-memory transaction state for every account.
//
// All mutations go through Store methods, which keep transfer pairs
// consistent, sort templates canonically and notify subscribers once per
// committed change. Reads return deep copies.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saldo/internal/core"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrTemplateNotFound   = errors.New("transaction not found")
	ErrLastAccount        = errors.New("cannot delete the last account")
	ErrTransferTarget     = errors.New("invalid transfer target account")
	ErrOccurrenceNotFound = errors.New("date is not an occurrence of the transaction")
)

// DefaultHistoryLimit caps each autocomplete history list.
const DefaultHistoryLimit = 100

// State is the persisted shape of the whole store.
type State struct {
	Accounts        []core.Account     `json:"accounts"`
	ActiveAccountID string             `json:"activeAccountId"`
	Histories       map[string]History `json:"histories,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := State{ActiveAccountID: s.ActiveAccountID}
	c.Accounts = make([]core.Account, len(s.Accounts))
	for i, a := range s.Accounts {
		c.Accounts[i] = a.Clone()
	}
	if s.Histories != nil {
		c.Histories = make(map[string]History, len(s.Histories))
		for id, h := range s.Histories {
			c.Histories[id] = h.Clone()
		}
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	accounts   []core.Account
	active     string
	histories  map[string]History
	version    uint64
	historyMax int

	logger    *slog.Logger
	newID     func() string
	listeners []func()
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithHistoryLimit caps autocomplete histories at n entries.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyMax = n
		}
	}
}

// WithIDGenerator replaces uuid.NewString for template and account ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New returns a store holding a single empty account.
func New(opts ...Option) *Store {
	s := &Store{
		histories:  make(map[string]History),
		historyMax: DefaultHistoryLimit,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ensureAccount()
	return s
}

// OnChange registers fn to run after every committed mutation. Callbacks
// run outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Load replaces the whole state, typically with what the gateway returned
// at startup. Templates are taken verbatim apart from canonical ordering.
// Load does not notify listeners unless it had to repair the state.
func (s *Store) Load(state State) {
	state = state.Clone()

	s.mu.Lock()
	s.accounts = state.Accounts
	for i := range s.accounts {
		core.SortTemplates(s.accounts[i].Transactions)
	}
	s.active = state.ActiveAccountID
	s.histories = state.Histories
	if s.histories == nil {
		s.histories = make(map[string]History)
	}
	repaired := s.ensureAccount()
	s.version++
	s.mu.Unlock()

	s.logger.Info("Loaded transaction state",
		"accounts", len(state.Accounts),
		"active_account_id", s.ActiveAccountID())
	if repaired {
		s.notify()
	}
}

// ensureAccount creates a default account when none exist and points the
// active id at an existing account. It reports whether anything changed.
// Callers hold s.mu.
func (s *Store) ensureAccount() bool {
	changed := false
	if len(s.accounts) == 0 {
		s.accounts = []core.Account{{ID: s.newID(), Name: "Account 1", Transactions: []core.Template{}}}
		changed = true
	}
	if s.indexOf(s.active) < 0 {
		s.active = s.accounts[0].ID
		changed = true
	}
	return changed
}

func (s *Store) indexOf(accountID string) int {
	for i, a := range s.accounts {
		if a.ID == accountID {
			return i
		}
	}
	return -1
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Accounts:        s.accounts,
		ActiveAccountID: s.active,
		Histories:       s.histories,
	}.Clone()
}

// Version increases on every committed mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Accounts() []core.Account {
	return s.Snapshot().Accounts
}

func (s *Store) Account(id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return s.accounts[i].Clone(), nil
}

// Template returns one template of an account.
func (s *Store) Template(accountID, id string) (core.Template, error) {
	acc, err := s.Account(accountID)
	if err != nil {
		return core.Template{}, err
	}
	i := acc.Find(id)
	if i < 0 {
		return core.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return acc.Transactions[i], nil
}

func (s *Store) ActiveAccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SwitchAccount makes id the active account.
func (s *Store) SwitchAccount(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if s.active == id {
		s.mu.Unlock()
		return nil
	}
	s.active = id
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}

// CreateAccount adds an empty account and makes it active. A blank name
// becomes "Account N" where N is the new account count.
func (s *Store) CreateAccount(name string) (core.Account, error) {
	s.mu.Lock()
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Account %d", len(s.accounts)+1)
	}
	acc := core.Account{ID: s.newID(), Name: name, Transactions: []core.Template{}}
	s.accounts = append(s.accounts, acc)
	s.active = acc.ID
	s.version++
	s.mu.Unlock()

	s.logger.Info("Account created", "account_id", acc.ID, "name", name)
	s.notify()
	return acc.Clone(), nil
}

func (s *Store) RenameAccount(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyAccountName
	}
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	s.accounts[i].Name = name
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}

// DeleteAccount removes an account and its templates. The last account
// cannot be deleted. Mirrors in other accounts that pointed at the deleted
// account are kept but unlinked. Deleting the active account activates the
// first remaining one.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if len(s.accounts) == 1 {
		s.mu.Unlock()
		return ErrLastAccount
	}
	s.accounts = slices.Delete(s.accounts, i, i+1)
	unlinked := 0
	for ai := range s.accounts {
		for ti := range s.accounts[ai].Transactions {
			t := &s.accounts[ai].Transactions[ti]
			if t.LinkedAccountID == id {
				t.LinkedAccountID = ""
				t.LinkedTransactionID = ""
				unlinked++
			}
		}
	}
	delete(s.histories, id)
	if s.active == id {
		s.active = s.accounts[0].ID
	}
	s.version++
	active := s.active
	s.mu.Unlock()

	s.logger.Info("Account deleted",
		"account_id", id,
		"unlinked_transfers", unlinked,
		"active_account_id", active)
	s.notify()
	return nil
}
