package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL of the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// LedgerRow is one row of ledger_rows.
type LedgerRow struct {
	ID          int64
	Bank        string
	Date        string
	DateKey     string
	SerialNo    string
	ChequeNo    string
	Description string
	Withdrawal  string
	Deposit     string
	Balance     string
	Category    string
	Signature   string
}

const listCategories = `SELECT name FROM categories ORDER BY position, name`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const deleteCategories = `DELETE FROM categories`

func (q *Queries) DeleteCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCategories)
	return err
}

const insertCategory = `INSERT INTO categories (name, position) VALUES (?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, name string, position int) error {
	_, err := q.db.ExecContext(ctx, insertCategory, name, position)
	return err
}

const listLedgerRows = `SELECT id, bank, date, date_key, serial_no, cheque_no, description, withdrawal, deposit, balance, category, signature
FROM ledger_rows WHERE bank = ? ORDER BY date_key, id`

func (q *Queries) ListLedgerRows(ctx context.Context, bank string) ([]LedgerRow, error) {
	return q.queryLedger(ctx, listLedgerRows, bank)
}

const listLedgerRowsForDates = `SELECT id, bank, date, date_key, serial_no, cheque_no, description, withdrawal, deposit, balance, category, signature
FROM ledger_rows WHERE bank = ? AND TRIM(date) IN (/*DATES*/) ORDER BY date_key, id`

func (q *Queries) ListLedgerRowsForDates(ctx context.Context, bank string, dates []string) ([]LedgerRow, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	query, args := expandIn(listLedgerRowsForDates, bank, dates)
	return q.queryLedger(ctx, query, args...)
}

func (q *Queries) queryLedger(ctx context.Context, query string, args ...any) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		if err := rows.Scan(&r.ID, &r.Bank, &r.Date, &r.DateKey, &r.SerialNo, &r.ChequeNo,
			&r.Description, &r.Withdrawal, &r.Deposit, &r.Balance, &r.Category, &r.Signature); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const deleteLedgerDates = `DELETE FROM ledger_rows WHERE bank = ? AND TRIM(date) IN (/*DATES*/)`

func (q *Queries) DeleteLedgerDates(ctx context.Context, bank string, dates []string) (int64, error) {
	if len(dates) == 0 {
		return 0, nil
	}
	query, args := expandIn(deleteLedgerDates, bank, dates)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertLedgerRow = `INSERT INTO ledger_rows
(bank, date, date_key, serial_no, cheque_no, description, withdrawal, deposit, balance, category, signature)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertLedgerRow(ctx context.Context, r LedgerRow) error {
	_, err := q.db.ExecContext(ctx, insertLedgerRow,
		r.Bank, r.Date, r.DateKey, r.SerialNo, r.ChequeNo, r.Description,
		r.Withdrawal, r.Deposit, r.Balance, r.Category, r.Signature)
	return err
}

const listBanks = `SELECT DISTINCT bank FROM ledger_rows ORDER BY bank`

func (q *Queries) ListBanks(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listBanks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const listBudgets = `SELECT category, amount FROM budgets WHERE bank = ? AND month_year = ? ORDER BY category`

// BudgetRow is one row of budgets for a bank and month.
type BudgetRow struct {
	Category string
	Amount   string
}

func (q *Queries) ListBudgets(ctx context.Context, bank, monthYear string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, bank, monthYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BudgetRow
	for rows.Next() {
		var b BudgetRow
		if err := rows.Scan(&b.Category, &b.Amount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const upsertBudget = `INSERT INTO budgets (bank, month_year, category, amount, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (bank, month_year, category) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertBudget(ctx context.Context, bank, monthYear, category, amount string) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, bank, monthYear, category, amount)
	return err
}

const insertMirrorBatch = `INSERT OR REPLACE INTO mirror_batches (batch_id, bank, dates, row_count, mirrored_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`

func (q *Queries) InsertMirrorBatch(ctx context.Context, batchID, bank string, dates []string, rows int) error {
	_, err := q.db.ExecContext(ctx, insertMirrorBatch, batchID, bank, strings.Join(dates, ","), rows)
	return err
}

const mirrorBatchExists = `SELECT COUNT(1) FROM mirror_batches WHERE batch_id = ?`

func (q *Queries) MirrorBatchExists(ctx context.Context, batchID string) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, mirrorBatchExists, batchID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// expandIn replaces the /*DATES*/ marker with one placeholder per date.
func expandIn(query, bank string, dates []string) (string, []any) {
	args := make([]any, 0, len(dates)+1)
	args = append(args, bank)
	for _, d := range dates {
		args = append(args, d)
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	return strings.Replace(query, "/*DATES*/", ph, 1), args
}
