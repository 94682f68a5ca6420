package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/core"
	"saldo/internal/store"

	_ "modernc.org/sqlite"
)

const (
	settingActiveAccount = "active_account_id"
	historyPayee         = "payee"
	historyDescription   = "description"
)

// ErrAccountNotFound is returned by LoadAccount for unknown ids.
var ErrAccountNotFound = errors.New("account not found in storage")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the newest schema on the same handle it then serves from.
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrateSchema(context.Background(), db, logger.With("db_path", dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadState reads every account, its templates, the active account id and
// the entry histories. Rows that cannot be decoded are skipped with a
// warning so one bad row never blocks startup.
func (r *SQLiteRepository) LoadState(ctx context.Context) (store.State, error) {
	state := store.State{Histories: make(map[string]store.History)}

	accounts, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return state, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		acc, err := r.loadAccount(ctx, r.queries, a)
		if err != nil {
			return state, err
		}
		state.Accounts = append(state.Accounts, acc)
	}

	active, err := r.queries.GetSetting(ctx, settingActiveAccount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return state, fmt.Errorf("get active account: %w", err)
	}
	state.ActiveAccountID = active

	histories, err := r.queries.ListEntryHistories(ctx)
	if err != nil {
		return state, fmt.Errorf("list entry histories: %w", err)
	}
	for _, h := range histories {
		var entries []string
		if err := json.Unmarshal([]byte(h.Entries), &entries); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable entry history",
				"account_id", h.AccountID, "kind", h.Kind, "error", err)
			continue
		}
		cur := state.Histories[h.AccountID]
		switch h.Kind {
		case historyPayee:
			cur.Payees = entries
		case historyDescription:
			cur.Descriptions = entries
		}
		state.Histories[h.AccountID] = cur
	}

	slog.InfoContext(ctx, "State loaded from SQLite",
		"accounts", len(state.Accounts),
		"active_account_id", state.ActiveAccountID)
	return state, nil
}

// LoadAccount reads one account with its templates.
func (r *SQLiteRepository) LoadAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return r.loadAccount(ctx, r.queries, a)
}

func (r *SQLiteRepository) loadAccount(ctx context.Context, q *Queries, a Account) (core.Account, error) {
	rows, err := q.ListTransactions(ctx, a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("list transactions for %s: %w", a.ID, err)
	}
	acc := core.Account{ID: a.ID, Name: a.Name, Transactions: make([]core.Template, 0, len(rows))}
	for _, row := range rows {
		t, err := templateFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping undecodable transaction row",
				"account_id", a.ID, "template_id", row.ID, "error", err)
			continue
		}
		acc.Transactions = append(acc.Transactions, t)
	}
	return acc, nil
}

// SaveState replaces everything stored with state in one transaction.
func (r *SQLiteRepository) SaveState(ctx context.Context, state store.State) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteAllEntryHistories(ctx); err != nil {
			return fmt.Errorf("clear entry histories: %w", err)
		}
		if err := q.DeleteAllTransactions(ctx); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		if err := q.DeleteAllAccounts(ctx); err != nil {
			return fmt.Errorf("clear accounts: %w", err)
		}
		for pos, acc := range state.Accounts {
			if err := q.InsertAccount(ctx, Account{ID: acc.ID, Name: acc.Name, Position: int64(pos)}); err != nil {
				return fmt.Errorf("insert account %s: %w", acc.ID, err)
			}
			for _, t := range acc.Transactions {
				row, err := rowFromTemplate(acc.ID, t)
				if err != nil {
					return err
				}
				if err := q.InsertTransaction(ctx, row); err != nil {
					return fmt.Errorf("insert transaction %s: %w", t.ID, err)
				}
			}
			if h, ok := state.Histories[acc.ID]; ok {
				if err := insertHistory(ctx, q, acc.ID, h); err != nil {
					return err
				}
			}
		}
		if err := q.UpsertSetting(ctx, settingActiveAccount, state.ActiveAccountID); err != nil {
			return fmt.Errorf("save active account: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	slog.DebugContext(ctx, "State saved to SQLite", "accounts", len(state.Accounts))
	return nil
}

func insertHistory(ctx context.Context, q *Queries, accountID string, h store.History) error {
	for kind, entries := range map[string][]string{historyPayee: h.Payees, historyDescription: h.Descriptions} {
		if entries == nil {
			entries = []string{}
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encode %s history: %w", kind, err)
		}
		if err := q.InsertEntryHistory(ctx, EntryHistory{AccountID: accountID, Kind: kind, Entries: string(b)}); err != nil {
			return fmt.Errorf("insert %s history for %s: %w", kind, accountID, err)
		}
	}
	return nil
}

func rowFromTemplate(accountID string, t core.Template) (Transaction, error) {
	excluded := make([]string, len(t.ExcludedDates))
	for i, d := range t.ExcludedDates {
		excluded[i] = d.String()
	}
	b, err := json.Marshal(excluded)
	if err != nil {
		return Transaction{}, fmt.Errorf("encode excluded dates of %s: %w", t.ID, err)
	}
	recurrence := t.Recurrence
	if recurrence == "" {
		recurrence = core.OneTime
	}
	return Transaction{
		ID:                  t.ID,
		AccountID:           accountID,
		Date:                t.Date.String(),
		Payee:               t.Payee,
		Description:         t.Description,
		Notes:               t.Notes,
		AmountCents:         t.Amount.Cents,
		Recurrence:          string(recurrence),
		RecurrenceEndDate:   nullString(t.RecurrenceEndDate.String()),
		ExcludedDates:       string(b),
		LinkedTransactionID: nullString(t.LinkedTransactionID),
		LinkedAccountID:     nullString(t.LinkedAccountID),
	}, nil
}

func templateFromRow(row Transaction) (core.Template, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Template{}, err
	}
	t := core.Template{
		ID:                  row.ID,
		Date:                date,
		Description:         row.Description,
		Payee:               row.Payee,
		Notes:               row.Notes,
		Amount:              core.NewMoney(row.AmountCents),
		Recurrence:          core.Recurrence(row.Recurrence),
		LinkedTransactionID: row.LinkedTransactionID.String,
		LinkedAccountID:     row.LinkedAccountID.String,
	}
	if row.RecurrenceEndDate.Valid && row.RecurrenceEndDate.String != "" {
		end, err := core.ParseDate(row.RecurrenceEndDate.String)
		if err != nil {
			return core.Template{}, fmt.Errorf("recurrence end date: %w", err)
		}
		t.RecurrenceEndDate = end
	}
	var excluded []string
	if row.ExcludedDates != "" {
		if err := json.Unmarshal([]byte(row.ExcludedDates), &excluded); err != nil {
			return core.Template{}, fmt.Errorf("excluded dates: %w", err)
		}
	}
	for _, s := range excluded {
		d, err := core.ParseDate(s)
		if err != nil {
			return core.Template{}, fmt.Errorf("excluded date: %w", err)
		}
		t.ExcludedDates = append(t.ExcludedDates, d)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
