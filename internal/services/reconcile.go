package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bankrecon/internal/core"
	"bankrecon/internal/log"
	"bankrecon/internal/metrics"
	"bankrecon/internal/sheets"
)

// ClassifyResult is the outcome of comparing an extracted batch with the
// stored ledger of a bank.
type ClassifyResult struct {
	Dates      core.DateStatuses
	Categories core.CategoryIndex
}

// GroupByDate partitions rows by their date string. Rows with a blank date
// are skipped. The returned order is the order in which dates first appear.
func GroupByDate(txs []core.RawTransaction) ([]string, map[string][]core.RawTransaction) {
	var order []string
	groups := make(map[string][]core.RawTransaction)
	for _, t := range txs {
		if strings.TrimSpace(t.Date) == "" {
			continue
		}
		if _, ok := groups[t.Date]; !ok {
			order = append(order, t.Date)
		}
		groups[t.Date] = append(groups[t.Date], t)
	}
	return order, groups
}

// ClassifyDates marks a date green only when every row on it is already
// stored and the stored row carries a category. Any other date is red.
func ClassifyDates(txs []core.RawTransaction, existing core.CategoryIndex) core.DateStatuses {
	order, groups := GroupByDate(txs)
	out := make(core.DateStatuses, len(order))
	for _, date := range order {
		status := core.StatusSynced
		for _, t := range groups[date] {
			cat, ok := existing[core.SignatureOf(t)]
			if !ok || !core.IsCategorized(cat) {
				status = core.StatusNeedsReview
				break
			}
		}
		out[date] = status
	}
	return out
}

// Reconciler classifies extracted batches against a ledger store.
type Reconciler struct {
	ledger  sheets.LedgerReader
	metrics *metrics.Metrics
}

func NewReconciler(ledger sheets.LedgerReader, m *metrics.Metrics) *Reconciler {
	return &Reconciler{ledger: ledger, metrics: m}
}

// Check loads the stored ledger of bank and classifies txs against it. The
// returned index only holds identities that occur in txs.
func (r *Reconciler) Check(ctx context.Context, bank core.BankID, txs []core.RawTransaction) (ClassifyResult, error) {
	stored, err := r.ledger.ListLedger(ctx, bank)
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("load ledger %s: %w", bank, err)
	}
	all := core.IndexLedger(stored)

	idx := make(core.CategoryIndex)
	for _, t := range txs {
		sig := core.SignatureOf(t)
		if cat, ok := all[sig]; ok {
			idx[sig] = cat
		}
	}
	res := ClassifyResult{Dates: ClassifyDates(txs, all), Categories: idx}
	for _, st := range res.Dates {
		r.metrics.ObserveDateStatus(bank, st)
	}
	return res, nil
}

// Classify is Check with a silent-degrade policy: a store failure is logged
// and an empty result returned, so every date renders as needing review.
func (r *Reconciler) Classify(ctx context.Context, bank core.BankID, txs []core.RawTransaction) ClassifyResult {
	res, err := r.Check(ctx, bank, txs)
	if err != nil {
		slog.WarnContext(ctx, "Classification unavailable",
			log.FieldComponent, log.ComponentLedger,
			log.FieldBank, bank,
			log.FieldError, err)
		return ClassifyResult{Dates: core.DateStatuses{}, Categories: core.CategoryIndex{}}
	}
	return res
}

// Prefill selects the rows of date from txs and resolves their categories
// against the stored ledger of bank.
func (r *Reconciler) Prefill(ctx context.Context, bank core.BankID, date string, txs []core.RawTransaction) []core.CategorizedTransaction {
	onDate := TransactionsOn(txs, date)
	res := r.Classify(ctx, bank, onDate)
	return Resolve(onDate, res.Categories)
}
