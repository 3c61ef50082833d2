package sheets

import (
	"context"

	"bankrecon/internal/core"
)

// Ports for outbound adapters. Each backend (memory, sqlite, Google Sheets)
// implements the full set.
type (
	// CategoryStore holds the ordered category list.
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]string, error)
		// SaveCategories replaces the whole list.
		SaveCategories(ctx context.Context, categories []string) error
	}

	// LedgerReader returns the stored rows of one bank, ordered by date.
	// A bank with no rows yields an empty slice, not an error.
	LedgerReader interface {
		ListLedger(ctx context.Context, bank core.BankID) ([]core.RawTransaction, error)
	}

	// LedgerWriter replaces every stored row of the given dates with rows.
	// The call is all-or-nothing.
	LedgerWriter interface {
		ReplaceDates(ctx context.Context, bank core.BankID, dates []string, rows []core.RawTransaction) error
	}

	// BudgetStore reads and writes budgets keyed by (bank, month, category).
	BudgetStore interface {
		ListBudgets(ctx context.Context, bank core.BankID, monthYear string) ([]core.Budget, error)
		// SetBudget fully replaces the value of one key.
		SetBudget(ctx context.Context, b core.Budget) error
	}

	Ledger interface {
		LedgerReader
		LedgerWriter
	}

	Store interface {
		CategoryStore
		Ledger
		BudgetStore
	}
)
