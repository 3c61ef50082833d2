package services

import (
	"context"
	"errors"
	"testing"

	"bankrecon/internal/core"
	"bankrecon/internal/sheets/memory"
)

type failingLedger struct{}

func (failingLedger) ListLedger(context.Context, core.BankID) ([]core.RawTransaction, error) {
	return nil, errors.New("sheets unavailable")
}

func seededStore(t *testing.T, bank core.BankID, rows []core.RawTransaction) *memory.Store {
	t.Helper()
	s := memory.New(core.DefaultCategories)
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	if err := s.ReplaceDates(context.Background(), bank, dates, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestClassifyDates(t *testing.T) {
	stored := []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20.00", Category: "food"},
		{Date: "01/01/2024", Description: "Bus", Withdrawal: "30", Category: "transport"},
		{Date: "02/01/2024", Description: "ATM", Withdrawal: "500", Category: ""},
	}
	batch := []core.RawTransaction{
		{Date: "01/01/2024", Description: " Tea ", Withdrawal: "20"},
		{Date: "01/01/2024", Description: "Bus", Withdrawal: "30.00"},
		{Date: "02/01/2024", Description: "ATM", Withdrawal: "500"},
		{Date: "03/01/2024", Description: "New", Withdrawal: "1"},
		{Date: "", Description: "Dateless", Withdrawal: "1"},
	}
	got := ClassifyDates(batch, core.IndexLedger(stored))

	want := core.DateStatuses{
		"01/01/2024": core.StatusSynced,
		"02/01/2024": core.StatusNeedsReview, // stored but uncategorized
		"03/01/2024": core.StatusNeedsReview,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for d, st := range want {
		if got[d] != st {
			t.Errorf("%s = %q, want %q", d, got[d], st)
		}
	}
}

func TestClassifyDates_PartialDateIsRed(t *testing.T) {
	stored := []core.RawTransaction{{Date: "05/01/2024", Description: "A", Withdrawal: "1", Category: "food"}}
	batch := []core.RawTransaction{
		{Date: "05/01/2024", Description: "A", Withdrawal: "1"},
		{Date: "05/01/2024", Description: "B", Withdrawal: "2"},
	}
	if st := ClassifyDates(batch, core.IndexLedger(stored))["05/01/2024"]; st != core.StatusNeedsReview {
		t.Fatalf("partially synced date must be red, got %q", st)
	}
}

func TestReconciler_Check(t *testing.T) {
	store := seededStore(t, "ICICI", []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20", Category: "food"},
		{Date: "09/01/2024", Description: "Other", Withdrawal: "5", Category: "other"},
	})
	r := NewReconciler(store, nil)
	batch := []core.RawTransaction{{Date: "01/01/2024", Description: "Tea", Withdrawal: "20.00"}}

	res, err := r.Check(context.Background(), "ICICI", batch)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Dates["01/01/2024"] != core.StatusSynced {
		t.Fatalf("dates = %v", res.Dates)
	}
	if len(res.Categories) != 1 || res.Categories[core.SignatureOf(batch[0])] != "food" {
		t.Fatalf("index = %v", res.Categories)
	}

	// another bank sees nothing
	res, _ = r.Check(context.Background(), "HDFC", batch)
	if res.Dates["01/01/2024"] != core.StatusNeedsReview || len(res.Categories) != 0 {
		t.Fatalf("unexpected result for empty bank: %+v", res)
	}
}

func TestReconciler_ClassifyDegradesSilently(t *testing.T) {
	r := NewReconciler(failingLedger{}, nil)
	batch := []core.RawTransaction{{Date: "01/01/2024", Description: "Tea", Withdrawal: "20"}}

	if _, err := r.Check(context.Background(), "ICICI", batch); err == nil {
		t.Fatal("Check should surface the store error")
	}
	res := r.Classify(context.Background(), "ICICI", batch)
	if res.Dates == nil || len(res.Dates) != 0 || len(res.Categories) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestReconciler_Prefill(t *testing.T) {
	store := seededStore(t, "ICICI", []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20", Category: "food"},
	})
	r := NewReconciler(store, nil)
	batch := []core.RawTransaction{
		{Date: "01/01/2024", Description: "Tea", Withdrawal: "20"},
		{Date: "01/01/2024", Description: "Cab", Withdrawal: "200", Category: "travel"},
		{Date: "02/01/2024", Description: "Skip", Withdrawal: "1"},
	}
	got := r.Prefill(context.Background(), "ICICI", "01/01/2024", batch)
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].Category != "food" || got[1].Category != "travel" {
		t.Fatalf("categories = %q, %q", got[0].Category, got[1].Category)
	}
}
