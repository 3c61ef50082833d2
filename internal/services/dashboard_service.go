package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bankrecon/internal/cache"
	"bankrecon/internal/core"
	"bankrecon/internal/metrics"
	"bankrecon/internal/sheets"
)

// DashboardService builds month views of a bank ledger and manages budgets.
type DashboardService struct {
	ledger     sheets.LedgerReader
	budgets    sheets.BudgetStore
	convention core.NetConvention
	cache      cache.Cache[core.Dashboard]
	metrics    *metrics.Metrics
}

func NewDashboardService(ledger sheets.LedgerReader, budgets sheets.BudgetStore, conv core.NetConvention, c cache.Cache[core.Dashboard], m *metrics.Metrics) *DashboardService {
	return &DashboardService{ledger: ledger, budgets: budgets, convention: conv, cache: c, metrics: m}
}

func cacheKey(bank core.BankID, month string) string {
	return string(bank) + "|" + month
}

// Fetch returns the dashboard of bank for monthYear. An empty monthYear
// selects the latest month with rows.
func (s *DashboardService) Fetch(ctx context.Context, bank core.BankID, monthYear string) (core.Dashboard, error) {
	monthYear = strings.TrimSpace(monthYear)
	if monthYear != "" {
		if err := core.ValidateMonthYear(monthYear); err != nil {
			return core.Dashboard{}, err
		}
	}
	if s.cache != nil {
		if d, ok := s.cache.Get(cacheKey(bank, monthYear)); ok {
			return d, nil
		}
	}

	rows, err := s.ledger.ListLedger(ctx, bank)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load ledger %s: %w", bank, err)
	}

	months := AvailableMonths(rows)
	selected := monthYear
	if selected == "" && len(months) > 0 {
		selected = months[0]
	}

	d := core.Dashboard{Bank: bank, Months: months, SelectedMonth: selected}
	if selected == "" {
		d.Metrics = Metrics(nil, decimal.NullDecimal{})
		return d, nil
	}

	monthRows := RowsInMonth(rows, selected)
	budgets, err := s.budgets.ListBudgets(ctx, bank, selected)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load budgets %s %s: %w", bank, selected, err)
	}
	d.Categories = Aggregate(monthRows, budgets, s.convention)
	d.Metrics = Metrics(d.Categories, ClosingBalance(monthRows))

	if s.cache != nil {
		s.cache.Set(cacheKey(bank, monthYear), d)
	}
	return d, nil
}

// SetBudget validates and stores one budget value, replacing any previous
// value of the same (bank, month, category).
func (s *DashboardService) SetBudget(ctx context.Context, bank core.BankID, monthYear, category, amount string) (core.Budget, error) {
	monthYear = strings.TrimSpace(monthYear)
	category = strings.TrimSpace(category)
	if bank == "" || monthYear == "" || category == "" {
		return core.Budget{}, fmt.Errorf("%w: bank, month and category are required", core.ErrInvalidBudget)
	}
	if err := core.ValidateMonthYear(monthYear); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", core.ErrInvalidBudget, err)
	}
	amt, ok := core.ParseAmount(amount)
	if !ok || amt.IsNegative() {
		return core.Budget{}, fmt.Errorf("%w: amount %q", core.ErrInvalidBudget, amount)
	}

	b := core.Budget{
		BudgetKey: core.BudgetKey{Bank: bank, MonthYear: monthYear, Category: category},
		Amount:    amt,
	}
	if err := s.budgets.SetBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	s.metrics.ObserveBudgetWrite(bank)
	s.Invalidate(bank)
	return b, nil
}

// Invalidate drops every cached month of bank.
func (s *DashboardService) Invalidate(bank core.BankID) {
	if s.cache != nil {
		s.cache.DeletePrefix(string(bank) + "|")
	}
}

// AvailableMonths lists the months that have rows, latest first.
func AvailableMonths(rows []core.RawTransaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		m, ok := core.MonthYearOf(r.Date)
		if !ok {
			continue
		}
		if _, dup := seen[m]; !dup {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// RowsInMonth keeps the rows dated in monthYear, in ledger order.
func RowsInMonth(rows []core.RawTransaction, monthYear string) []core.RawTransaction {
	var out []core.RawTransaction
	for _, r := range rows {
		if m, ok := core.MonthYearOf(r.Date); ok && m == monthYear {
			out = append(out, r)
		}
	}
	return out
}

// ClosingBalance is the balance column of the last row that has one.
func ClosingBalance(rows []core.RawTransaction) decimal.NullDecimal {
	for i := len(rows) - 1; i >= 0; i-- {
		if b, ok := core.ParseAmount(rows[i].Balance); ok {
			return decimal.NullDecimal{Decimal: b, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}
