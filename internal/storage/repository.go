package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"bankrecon/internal/core"
	"bankrecon/internal/sheets"
)

// SQLiteRepository is the durable ledger backend.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ sheets.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, queries: New(db)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) SaveCategories(ctx context.Context, categories []string) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteCategories(ctx); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		for i, c := range categories {
			if err := q.InsertCategory(ctx, c, i+1); err != nil {
				return fmt.Errorf("insert category %q: %w", c, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListLedger(ctx context.Context, bank core.BankID) ([]core.RawTransaction, error) {
	rows, err := r.queries.ListLedgerRows(ctx, string(bank))
	if err != nil {
		return nil, fmt.Errorf("list ledger %s: %w", bank, err)
	}
	return toTransactions(rows), nil
}

// ListLedgerForDates returns the stored rows of bank on the given dates.
func (r *SQLiteRepository) ListLedgerForDates(ctx context.Context, bank core.BankID, dates []string) ([]core.RawTransaction, error) {
	rows, err := r.queries.ListLedgerRowsForDates(ctx, string(bank), trimmed(dates))
	if err != nil {
		return nil, fmt.Errorf("list ledger %s for dates: %w", bank, err)
	}
	return toTransactions(rows), nil
}

// ReplaceDates deletes the rows of dates and inserts the rows dated on one
// of them inside one transaction.
func (r *SQLiteRepository) ReplaceDates(ctx context.Context, bank core.BankID, dates []string, rows []core.RawTransaction) error {
	targets := core.DateSet(dates)
	if len(targets) == 0 {
		return nil
	}
	keys := make([]string, 0, len(targets))
	for d := range targets {
		keys = append(keys, d)
	}

	var deleted int64
	inserted := 0
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteLedgerDates(ctx, string(bank), keys)
		if err != nil {
			return fmt.Errorf("delete rows: %w", err)
		}
		deleted = n
		for _, t := range rows {
			if _, ok := targets[strings.TrimSpace(t.Date)]; !ok {
				continue
			}
			if err := q.InsertLedgerRow(ctx, toRow(bank, t)); err != nil {
				return fmt.Errorf("insert row: %w", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace ledger dates %s: %w", bank, err)
	}
	slog.DebugContext(ctx, "Ledger dates replaced in SQLite",
		"bank", bank, "dates", len(keys), "deleted", deleted, "inserted", inserted)
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, bank core.BankID, monthYear string) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, string(bank), monthYear)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, b := range rows {
		amt, ok := core.ParseAmount(b.Amount)
		if !ok {
			slog.WarnContext(ctx, "Skipping unparseable budget", "bank", bank, "month_year", monthYear, "category", b.Category, "amount", b.Amount)
			continue
		}
		out = append(out, core.Budget{
			BudgetKey: core.BudgetKey{Bank: bank, MonthYear: monthYear, Category: b.Category},
			Amount:    amt,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := r.queries.UpsertBudget(ctx, string(b.Bank), b.MonthYear, b.Category, b.Amount.String()); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// Banks lists banks that have ledger rows.
func (r *SQLiteRepository) Banks(ctx context.Context) ([]core.BankID, error) {
	names, err := r.queries.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	out := make([]core.BankID, 0, len(names))
	for _, n := range names {
		out = append(out, core.BankID(n))
	}
	return out, nil
}

// MarkMirrored records that a sync batch was copied to the mirror.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, batchID string, bank core.BankID, dates []string, rows int) error {
	if err := r.queries.InsertMirrorBatch(ctx, batchID, string(bank), dates, rows); err != nil {
		return fmt.Errorf("record mirror batch: %w", err)
	}
	return nil
}

// IsMirrored reports whether batchID was already mirrored.
func (r *SQLiteRepository) IsMirrored(ctx context.Context, batchID string) (bool, error) {
	ok, err := r.queries.MirrorBatchExists(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("lookup mirror batch: %w", err)
	}
	return ok, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func toRow(bank core.BankID, t core.RawTransaction) LedgerRow {
	key := ""
	if d, ok := core.ParseLedgerDate(t.Date); ok {
		key = d.Format("2006-01-02")
	}
	return LedgerRow{
		Bank:        string(bank),
		Date:        strings.TrimSpace(t.Date),
		DateKey:     key,
		SerialNo:    t.SerialNo,
		ChequeNo:    t.ChequeNo,
		Description: t.Description,
		Withdrawal:  t.Withdrawal,
		Deposit:     t.Deposit,
		Balance:     t.Balance,
		Category:    t.Category,
		Signature:   core.SignatureOf(t).Hash(),
	}
}

func toTransactions(rows []LedgerRow) []core.RawTransaction {
	out := make([]core.RawTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.RawTransaction{
			SerialNo:    r.SerialNo,
			Date:        r.Date,
			ChequeNo:    r.ChequeNo,
			Description: r.Description,
			Withdrawal:  r.Withdrawal,
			Deposit:     r.Deposit,
			Balance:     r.Balance,
			Category:    r.Category,
		})
	}
	return out
}

func trimmed(dates []string) []string {
	out := make([]string, 0, len(dates))
	for d := range core.DateSet(dates) {
		out = append(out, d)
	}
	return out
}
