package memory

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/core"
	ports "saldo/internal/sheets"
)

var (
	_ ports.AccountMirror  = (*Store)(nil)
	_ ports.AccountRemover = (*Store)(nil)
)

// Store keeps mirrored account tabs in memory. It is used when no
// spreadsheet is configured and in tests.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]string)}
}

func (s *Store) MirrorAccount(_ context.Context, acc core.Account) (string, error) {
	if acc.ID == "" {
		return "", core.ErrMissingAccountID
	}
	rows := ports.Rows(acc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[acc.ID] = rows
	s.writes++
	return fmt.Sprintf("mem:%s:%d", acc.ID, len(rows)), nil
}

func (s *Store) RemoveAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, accountID)
	return nil
}

// Tab returns a copy of the rows mirrored for accountID.
func (s *Store) Tab(accountID string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[accountID]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Writes counts successful MirrorAccount calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
