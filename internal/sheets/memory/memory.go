package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"bankrecon/internal/core"
	"bankrecon/internal/sheets"
)

// Store is a process-local backend. It is the default for development and
// the integration double in tests.
type Store struct {
	mu      sync.RWMutex
	cats    []string
	ledgers map[core.BankID][]core.RawTransaction
	budgets map[core.BudgetKey]core.Budget
}

var _ sheets.Store = (*Store)(nil)

func New(cats []string) *Store {
	return &Store{
		cats:    dedupe(cats),
		ledgers: make(map[core.BankID][]core.RawTransaction),
		budgets: make(map[core.BudgetKey]core.Budget),
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back
// to the default list.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.DefaultCategories
	}
	return New(cats)
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cats...), nil
}

func (s *Store) SaveCategories(_ context.Context, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = dedupe(categories)
	return nil
}

func (s *Store) ListLedger(_ context.Context, bank core.BankID) ([]core.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.RawTransaction(nil), s.ledgers[bank]...), nil
}

func (s *Store) ReplaceDates(_ context.Context, bank core.BankID, dates []string, rows []core.RawTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[bank] = core.MergeLedger(s.ledgers[bank], dates, rows)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, bank core.BankID, monthYear string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for k, b := range s.budgets {
		if k.Bank == bank && k.MonthYear == monthYear {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.BudgetKey] = b
	return nil
}

// Banks lists the banks that have ledger rows.
func (s *Store) Banks() []core.BankID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BankID, 0, len(s.ledgers))
	for b := range s.ledgers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
