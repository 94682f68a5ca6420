package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Account struct {
	ID       string
	Name     string
	Position int64
}

type Transaction struct {
	ID                  string
	AccountID           string
	Date                string
	Payee               string
	Description         string
	Notes               string
	AmountCents         int64
	Recurrence          string
	RecurrenceEndDate   sql.NullString
	ExcludedDates       string
	LinkedTransactionID sql.NullString
	LinkedAccountID     sql.NullString
}

type EntryHistory struct {
	AccountID string
	Kind      string
	Entries   string
}

const listAccounts = `SELECT id, name, position FROM accounts ORDER BY position, created_at, id`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(&i.ID, &i.Name, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAccount = `SELECT id, name, position FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	var i Account
	err := q.db.QueryRowContext(ctx, getAccount, id).Scan(&i.ID, &i.Name, &i.Position)
	return i, err
}

const insertAccount = `INSERT INTO accounts (id, name, position) VALUES (?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(ctx, insertAccount, arg.ID, arg.Name, arg.Position)
	return err
}

const deleteAllAccounts = `DELETE FROM accounts`

func (q *Queries) DeleteAllAccounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllAccounts)
	return err
}

const listTransactions = `SELECT id, account_id, date, payee, description, notes, amount_cents, recurrence,
       recurrence_end_date, excluded_dates, linked_transaction_id, linked_account_id
FROM transactions
WHERE account_id = ?
ORDER BY date, description, amount_cents, id`

func (q *Queries) ListTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Date,
			&i.Payee,
			&i.Description,
			&i.Notes,
			&i.AmountCents,
			&i.Recurrence,
			&i.RecurrenceEndDate,
			&i.ExcludedDates,
			&i.LinkedTransactionID,
			&i.LinkedAccountID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (
    id, account_id, date, payee, description, notes, amount_cents, recurrence,
    recurrence_end_date, excluded_dates, linked_transaction_id, linked_account_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.AccountID,
		arg.Date,
		arg.Payee,
		arg.Description,
		arg.Notes,
		arg.AmountCents,
		arg.Recurrence,
		arg.RecurrenceEndDate,
		arg.ExcludedDates,
		arg.LinkedTransactionID,
		arg.LinkedAccountID,
	)
	return err
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

const listEntryHistories = `SELECT account_id, kind, entries FROM entry_histories`

func (q *Queries) ListEntryHistories(ctx context.Context) ([]EntryHistory, error) {
	rows, err := q.db.QueryContext(ctx, listEntryHistories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryHistory
	for rows.Next() {
		var i EntryHistory
		if err := rows.Scan(&i.AccountID, &i.Kind, &i.Entries); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertEntryHistory = `INSERT INTO entry_histories (account_id, kind, entries) VALUES (?, ?, ?)`

func (q *Queries) InsertEntryHistory(ctx context.Context, arg EntryHistory) error {
	_, err := q.db.ExecContext(ctx, insertEntryHistory, arg.AccountID, arg.Kind, arg.Entries)
	return err
}

const deleteAllEntryHistories = `DELETE FROM entry_histories`

func (q *Queries) DeleteAllEntryHistories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllEntryHistories)
	return err
}
