package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// SuggestLimit is the maximum number of autocomplete suggestions.
const SuggestLimit = 10

// History holds the recently used payees and descriptions of one account,
// most recent first.
type History struct {
	Payees       []string `json:"payees"`
	Descriptions []string `json:"descriptions"`
}

func (h History) Clone() History {
	return History{
		Payees:       slices.Clone(h.Payees),
		Descriptions: slices.Clone(h.Descriptions),
	}
}

// Record moves payee and description to the front of their lists.
func (h History) Record(payee, description string, limit int) History {
	return History{
		Payees:       AddToHistory(h.Payees, payee, limit),
		Descriptions: AddToHistory(h.Descriptions, description, limit),
	}
}

// normalize trims, dedups case-insensitively and caps both lists.
func (h History) normalize(limit int) History {
	return History{
		Payees:       cleanList(h.Payees, limit),
		Descriptions: cleanList(h.Descriptions, limit),
	}
}

// AddToHistory puts value at the front of list, dropping any earlier entry
// equal to it ignoring case, and keeps at most limit entries. Blank values
// leave the list unchanged.
func AddToHistory(list []string, value string, limit int) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return slices.Clone(list)
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, value)
	for _, item := range list {
		if !strings.EqualFold(item, value) {
			out = append(out, item)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cleanList(list []string, limit int) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, item) }) {
			continue
		}
		out = append(out, item)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Suggest returns up to SuggestLimit entries containing q, ignoring case,
// in history order. An empty query returns the most recent entries. When
// nothing contains q, entries within a small edit distance are returned,
// closest first, so typos still find a match.
func Suggest(list []string, q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]string, 0, SuggestLimit)
	for _, item := range list {
		if q == "" || strings.Contains(strings.ToLower(item), q) {
			out = append(out, item)
			if len(out) == SuggestLimit {
				return out
			}
		}
	}
	if len(out) > 0 || q == "" {
		return out
	}

	type candidate struct {
		item string
		dist int
		pos  int
	}
	qLen := len([]rune(q))
	maxDist := max(1, qLen/3)
	var cands []candidate
	for i, item := range list {
		lower := []rune(strings.ToLower(item))
		// Compare against the prefix so long entries are not penalised for
		// their tail.
		if len(lower) > qLen {
			lower = lower[:qLen]
		}
		if d := levenshtein.ComputeDistance(q, string(lower)); d <= maxDist {
			cands = append(cands, candidate{item: item, dist: d, pos: i})
		}
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	for _, c := range cands {
		out = append(out, c.item)
		if len(out) == SuggestLimit {
			break
		}
	}
	return out
}

// History returns the autocomplete lists of an account. Unknown accounts
// have empty lists.
func (s *Store) History(accountID string) History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.histories[accountID].Clone()
	if h.Payees == nil {
		h.Payees = []string{}
	}
	if h.Descriptions == nil {
		h.Descriptions = []string{}
	}
	return h
}

// RecordHistory adds a payee/description pair to the account's history.
func (s *Store) RecordHistory(accountID, payee, description string) error {
	c := s.begin()
	if _, err := c.mustAccount(accountID); err != nil {
		c.abort()
		return err
	}
	c.recordHistory(accountID, payee, description)
	return c.commit()
}

// SetHistory replaces the account's history with h after trimming,
// case-insensitive dedup and capping.
func (s *Store) SetHistory(accountID string, h History) error {
	s.mu.Lock()
	if s.indexOf(accountID) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	s.histories[accountID] = h.normalize(s.historyMax)
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}
