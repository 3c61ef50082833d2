package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"bankrecon/internal/amqp"
	"bankrecon/internal/core"
	"bankrecon/internal/log"
	"bankrecon/internal/metrics"
	"bankrecon/internal/sheets"
)

// SyncPublisher announces ledger changes to other processes.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, msg *amqp.LedgerSyncMessage) error
}

// Invalidator drops cached views of a bank.
type Invalidator interface {
	Invalidate(bank core.BankID)
}

// LedgerService writes reviewed statement rows to the ledger store and
// announces each write.
type LedgerService struct {
	ledger      sheets.Ledger
	publisher   SyncPublisher
	invalidator Invalidator
	metrics     *metrics.Metrics
	closers     []func() error
}

// LedgerOption configures a LedgerService.
type LedgerOption func(*LedgerService)

func WithPublisher(p SyncPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithInvalidator(i Invalidator) LedgerOption {
	return func(s *LedgerService) { s.invalidator = i }
}

func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

// WithCloser registers a resource released by Close.
func WithCloser(fn func() error) LedgerOption {
	return func(s *LedgerService) { s.closers = append(s.closers, fn) }
}

func NewLedgerService(ledger sheets.Ledger, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{ledger: ledger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sync replaces the stored rows of dates with the rows of txs dated on one
// of them. Calling it again with the same batch leaves the ledger as it is.
// A failed publish is logged; the rows are already stored.
func (s *LedgerService) Sync(ctx context.Context, bank core.BankID, dates []string, txs []core.CategorizedTransaction) error {
	if bank == "" {
		return fmt.Errorf("%w: empty bank", core.ErrUnknownBank)
	}
	targets := core.DateSet(dates)
	if len(targets) == 0 || len(txs) == 0 {
		return core.ErrNoTransactions
	}

	clean := make([]string, 0, len(targets))
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			if _, ok := targets[d]; ok {
				clean = append(clean, d)
				delete(targets, d)
			}
		}
	}

	rows := make([]core.RawTransaction, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, t.Raw())
	}

	err := s.ledger.ReplaceDates(ctx, bank, clean, rows)
	s.metrics.ObserveSync(bank, len(rows), err)
	if err != nil {
		return fmt.Errorf("sync %s: %w", bank, err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(bank)
	}

	slog.InfoContext(ctx, "Ledger synced", log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(log.OpSync).
		WithLedger(string(bank), clean, len(rows)).ToSlice()...)

	if s.publisher == nil {
		return nil
	}
	msg := amqp.NewLedgerSyncMessage(string(bank), clean, len(rows))
	if err := s.publisher.PublishLedgerSync(ctx, msg); err != nil {
		s.metrics.ObservePublishFailure()
		slog.ErrorContext(ctx, "Failed to publish ledger sync message",
			log.FieldComponent, log.ComponentLedger,
			log.FieldBatchID, msg.BatchID,
			log.FieldBank, bank,
			log.FieldError, err)
	}
	return nil
}

// LastSync returns the latest stored date of every bank, "N/A" for a bank
// without rows and "Error" for a bank whose ledger could not be read.
// Banks are read concurrently.
func (s *LedgerService) LastSync(ctx context.Context, banks []core.BankID) map[core.BankID]string {
	results := make([]string, len(banks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, bank := range banks {
		g.Go(func() error {
			rows, err := s.ledger.ListLedger(gctx, bank)
			if err != nil {
				slog.WarnContext(ctx, "Last sync lookup failed", log.FieldBank, bank, log.FieldError, err)
				results[i] = "Error"
				return nil
			}
			if d, ok := core.LatestDate(rows); ok {
				results[i] = d
			} else {
				results[i] = "N/A"
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[core.BankID]string, len(banks))
	for i, b := range banks {
		out[b] = results[i]
	}
	return out
}

// Close releases registered resources and reports every failure.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
