package csvio

import (
	"fmt"
	"strings"

	"saldo/internal/core"
)

type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// ParseMode accepts "merge" or "replace"; empty means merge.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMerge, nil
	case ModeMerge, ModeReplace:
		return m, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// Preview describes what an import would do before it is committed.
type Preview struct {
	ImportMode    Mode `json:"importMode"`
	TotalRows     int  `json:"totalRows"`
	ValidRows     int  `json:"validRows"`
	InvalidRows   int  `json:"invalidRows"`
	DuplicateRows int  `json:"duplicateRows"`
	NewRows       int  `json:"newRows"`
}

// DedupKey identifies a transaction for duplicate detection:
// date|normalized description|amount in cents. Two rows on the same day
// with the same description and amount are indistinguishable.
func DedupKey(t core.Template) string {
	desc := strings.ToLower(strings.Join(strings.Fields(t.Description), " "))
	return fmt.Sprintf("%s|%s|%d", t.Date.String(), desc, t.Amount.Cents)
}

// Analyze counts new and duplicate rows without touching existing data.
// In merge mode incoming rows are checked against existing rows and each
// other; in replace mode only against each other.
func Analyze(existing []core.Template, parsed ParseResult, mode Mode) Preview {
	seen := make(map[string]struct{})
	if mode != ModeReplace {
		for _, t := range existing {
			seen[DedupKey(t)] = struct{}{}
		}
	}
	p := Preview{
		ImportMode:  mode,
		TotalRows:   parsed.TotalRows,
		ValidRows:   len(parsed.ValidRows),
		InvalidRows: parsed.InvalidRows,
	}
	for _, t := range parsed.ValidRows {
		key := DedupKey(t)
		if _, dup := seen[key]; dup {
			p.DuplicateRows++
			continue
		}
		seen[key] = struct{}{}
		p.NewRows++
	}
	return p
}

// Merge keeps every existing row and appends incoming rows whose key is
// not present yet. The result is sorted.
func Merge(existing, incoming []core.Template) []core.Template {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]core.Template, 0, len(existing)+len(incoming))
	for _, t := range existing {
		seen[DedupKey(t)] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range incoming {
		key := DedupKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, t)
	}
	core.SortTemplates(merged)
	return merged
}

// Dedupe drops later rows that repeat an earlier row's key. Order is kept.
func Dedupe(rows []core.Template) []core.Template {
	seen := make(map[string]struct{}, len(rows))
	out := make([]core.Template, 0, len(rows))
	for _, t := range rows {
		key := DedupKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Apply returns the committed template list for an import.
func Apply(existing, incoming []core.Template, mode Mode) []core.Template {
	if mode == ModeReplace {
		out := Dedupe(incoming)
		core.SortTemplates(out)
		return out
	}
	return Merge(existing, incoming)
}

// Summary renders the post-import notification text.
func Summary(p Preview) string {
	action := "Imported"
	if p.ImportMode == ModeReplace {
		action = "Replaced with"
	}
	return fmt.Sprintf("%s %d transaction(s). Skipped %d duplicate row(s) and %d invalid row(s).",
		action, p.NewRows, p.DuplicateRows, p.InvalidRows)
}
