package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bankrecon/internal/amqp"
	"bankrecon/internal/core"
	"bankrecon/internal/log"
	"bankrecon/internal/sheets"
)

// Source is the authoritative ledger the worker copies from.
type Source interface {
	sheets.LedgerReader
	ListCategories(ctx context.Context) ([]string, error)
	ListLedgerForDates(ctx context.Context, bank core.BankID, dates []string) ([]core.RawTransaction, error)
	Banks(ctx context.Context) ([]core.BankID, error)
	IsMirrored(ctx context.Context, batchID string) (bool, error)
	MarkMirrored(ctx context.Context, batchID string, bank core.BankID, dates []string, rows int) error
}

// Target receives the copy, typically the Google Sheets ledger.
type Target interface {
	sheets.LedgerWriter
	SaveCategories(ctx context.Context, categories []string) error
}

// SyncWorker mirrors ledger writes from SQLite to Google Sheets.
type SyncWorker struct {
	source Source
	target Target
}

func NewSyncWorker(source Source, target Target) *SyncWorker {
	return &SyncWorker{source: source, target: target}
}

// HandleLedgerSync copies the rows of the message's dates to the target.
// Batches already mirrored are skipped, so redelivery is harmless.
func (w *SyncWorker) HandleLedgerSync(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	bank := core.BankID(msg.Bank).Normalize()
	slog.InfoContext(ctx, "Processing ledger sync message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldBatchID, msg.BatchID,
		log.FieldBank, bank,
		log.FieldDates, len(msg.Dates))

	done, err := w.source.IsMirrored(ctx, msg.BatchID)
	if err != nil {
		return fmt.Errorf("check batch %s: %w", msg.BatchID, err)
	}
	if done {
		slog.InfoContext(ctx, "Batch already mirrored, skipping",
			log.FieldComponent, log.ComponentWorker,
			log.FieldBatchID, msg.BatchID)
		return nil
	}

	rows, err := w.mirrorDates(ctx, bank, msg.Dates)
	if err != nil {
		return err
	}

	// The mirror itself succeeded; a failed bookkeeping write only means the
	// batch may be copied again, which yields the same rows.
	if err := w.source.MarkMirrored(ctx, msg.BatchID, bank, msg.Dates, rows); err != nil {
		slog.ErrorContext(ctx, "Failed to record mirrored batch",
			log.FieldComponent, log.ComponentWorker,
			log.FieldBatchID, msg.BatchID,
			log.FieldError, err)
	}

	slog.InfoContext(ctx, "Ledger mirrored", log.NewFields().
		WithComponent(log.ComponentWorker).
		WithOperation(log.OpMirror).
		WithLedger(string(bank), msg.Dates, rows).ToSlice()...)
	return nil
}

func (w *SyncWorker) mirrorDates(ctx context.Context, bank core.BankID, dates []string) (int, error) {
	rows, err := w.source.ListLedgerForDates(ctx, bank, dates)
	if err != nil {
		return 0, fmt.Errorf("read ledger %s: %w", bank, err)
	}
	if err := w.target.ReplaceDates(ctx, bank, dates, rows); err != nil {
		return 0, fmt.Errorf("mirror ledger %s: %w", bank, err)
	}
	return len(rows), nil
}

// StartupSyncCheck copies the whole ledger of every bank and the category
// list. It recovers from messages lost while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	start := time.Now()

	cats, err := w.source.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("read categories: %w", err)
	}
	if err := w.target.SaveCategories(ctx, cats); err != nil {
		return fmt.Errorf("mirror categories: %w", err)
	}

	banks, err := w.source.Banks(ctx)
	if err != nil {
		return fmt.Errorf("list banks: %w", err)
	}

	var total, failed int
	for _, bank := range banks {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := w.source.ListLedger(ctx, bank)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read ledger during startup sync",
				log.FieldComponent, log.ComponentWorker, log.FieldBank, bank, log.FieldError, err)
			failed++
			continue
		}
		dates := ledgerDates(rows)
		if len(dates) == 0 {
			continue
		}
		if err := w.target.ReplaceDates(ctx, bank, dates, rows); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror ledger during startup sync",
				log.FieldComponent, log.ComponentWorker, log.FieldBank, bank, log.FieldError, err)
			failed++
			continue
		}
		total += len(rows)
	}

	slog.InfoContext(ctx, "Startup sync completed",
		log.FieldComponent, log.ComponentWorker,
		"banks", len(banks),
		"categories", len(cats),
		log.FieldRows, total,
		"errors", failed,
		"duration", time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("startup sync: %d of %d banks failed", failed, len(banks))
	}
	return nil
}

func ledgerDates(rows []core.RawTransaction) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, r := range rows {
		for d := range core.DateSet([]string{r.Date}) {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				out = append(out, d)
			}
		}
	}
	return out
}
