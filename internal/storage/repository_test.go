package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"bankrecon/internal/core"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestReplaceDates_CommitsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ledger_rows WHERE bank = \? AND TRIM\(date\) IN \(\?\)`).
		WithArgs("ICICI", "01/01/2024").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO ledger_rows`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rows := []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20.00", Deposit: "0.00"},
		{Date: "02/01/2024", Description: "Not targeted", Withdrawal: "5.00", Deposit: "0.00"},
	}
	if err := repo.ReplaceDates(context.Background(), "ICICI", []string{" 01/01/2024 "}, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceDates_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ledger_rows`).
		WithArgs("ICICI", "01/01/2024").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_rows`).
		WithArgs(anyArgs(11)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	rows := []core.RawTransaction{{Date: "01/01/2024", Description: "Tea"}}
	if err := repo.ReplaceDates(context.Background(), "ICICI", []string{"01/01/2024"}, rows); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceDates_NoDatesIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	if err := repo.ReplaceDates(context.Background(), "ICICI", []string{" ", ""}, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestSaveCategories_Rollback(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM categories`).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(`INSERT INTO categories`).WithArgs("food", 1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO categories`).WithArgs("rent", 2).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	if err := repo.SaveCategories(context.Background(), []string{"food", "rent"}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListBudgets_SkipsUnparseable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT category, amount FROM budgets`).
		WithArgs("ICICI", "2024-01").
		WillReturnRows(sqlmock.NewRows([]string{"category", "amount"}).
			AddRow("food", "600").
			AddRow("rent", "n/a"))

	got, err := repo.ListBudgets(context.Background(), "ICICI", "2024-01")
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(got) != 1 || got[0].Category != "food" || !got[0].Amount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("budgets = %+v", got)
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if !reflect.DeepEqual(cats, core.DefaultCategories) {
		t.Fatalf("seeded categories = %v", cats)
	}
	if err := repo.SaveCategories(ctx, []string{"rent", "food"}); err != nil {
		t.Fatalf("save categories: %v", err)
	}
	if cats, _ = repo.ListCategories(ctx); !reflect.DeepEqual(cats, []string{"rent", "food"}) {
		t.Fatalf("saved categories = %v", cats)
	}

	batch := []core.RawTransaction{
		{Date: "03/01/2024", Description: "Rent", Withdrawal: "15000.00", Deposit: "0.00", Category: "rent"},
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20.00", Deposit: "0.00", Category: "food"},
	}
	dates := []string{"01/01/2024", "03/01/2024"}
	for i := 0; i < 2; i++ {
		if err := repo.ReplaceDates(ctx, "ICICI", dates, batch); err != nil {
			t.Fatalf("replace #%d: %v", i, err)
		}
	}
	ledger, err := repo.ListLedger(ctx, "ICICI")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != 2 || ledger[0].Description != "Tea" || ledger[1].Description != "Rent" {
		t.Fatalf("ledger = %+v", ledger)
	}

	onDay, err := repo.ListLedgerForDates(ctx, "ICICI", []string{"03/01/2024"})
	if err != nil || len(onDay) != 1 || onDay[0].Category != "rent" {
		t.Fatalf("rows for date = %+v err=%v", onDay, err)
	}

	banks, err := repo.Banks(ctx)
	if err != nil || !reflect.DeepEqual(banks, []core.BankID{"ICICI"}) {
		t.Fatalf("banks = %v err=%v", banks, err)
	}

	key := core.BudgetKey{Bank: "ICICI", MonthYear: "2024-01", Category: "food"}
	_ = repo.SetBudget(ctx, core.Budget{BudgetKey: key, Amount: decimal.NewFromInt(500)})
	if err := repo.SetBudget(ctx, core.Budget{BudgetKey: key, Amount: decimal.RequireFromString("650.50")}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	budgets, err := repo.ListBudgets(ctx, "ICICI", "2024-01")
	if err != nil || len(budgets) != 1 || budgets[0].Amount.String() != "650.5" {
		t.Fatalf("budgets = %+v err=%v", budgets, err)
	}

	if ok, _ := repo.IsMirrored(ctx, "batch-1"); ok {
		t.Fatal("batch should not be mirrored yet")
	}
	if err := repo.MarkMirrored(ctx, "batch-1", "ICICI", dates, 2); err != nil {
		t.Fatalf("mark mirrored: %v", err)
	}
	if ok, _ := repo.IsMirrored(ctx, "batch-1"); !ok {
		t.Fatal("batch should be mirrored")
	}
}
