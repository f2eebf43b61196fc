package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/metrics"
	"conti/internal/sheets"
)

// EntrySource is the storage side of the export: it reads ledger entries
// and remembers where each one was written.
type EntrySource interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	PendingExports(ctx context.Context, limit int) ([]string, error)
	MarkExported(ctx context.Context, id, ref string) error
	ExportRef(ctx context.Context, id string) (string, error)
}

// ExportWorker copies applied ledger entries to the spreadsheet.
type ExportWorker struct {
	source    EntrySource
	sheets    sheets.EntryWriter
	metrics   metrics.Collector
	logger    *log.Logger
	batchSize int
}

func NewExportWorker(source EntrySource, writer sheets.EntryWriter, collector metrics.Collector, batchSize int) *ExportWorker {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		source:    source,
		sheets:    writer,
		metrics:   collector,
		logger:    log.Default(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleLedgerEvent exports the entry an event refers to. For a reversal
// that is the new inverse entry. A returned error means the delivery
// should be retried.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	start := time.Now()
	err := w.ExportTransaction(ctx, event.TransactionID)
	w.metrics.RecordEventExported(string(event.Type), err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("export %s event: %w", event.Type, err)
	}
	return nil
}

// ExportTransaction writes transaction id to the sheet unless it was
// already exported. Entries that no longer exist or were never applied are
// skipped.
func (w *ExportWorker) ExportTransaction(ctx context.Context, id string) error {
	ref, err := w.source.ExportRef(ctx, id)
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		w.logger.WarnContext(ctx, "Skipping export of unknown transaction",
			log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read export state: %w", err)
	}
	if ref != "" {
		w.logger.DebugContext(ctx, "Transaction already exported",
			log.FieldTransactionID, id,
			log.FieldSheetsRef, ref)
		return nil
	}

	t, err := w.source.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if !t.IsApplied() {
		w.logger.WarnContext(ctx, "Skipping export of unapplied transaction",
			log.FieldTransactionID, id)
		return nil
	}

	ref, err = w.sheets.AppendEntry(ctx, t)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.source.MarkExported(ctx, id, ref); err != nil {
		// The row is written; a later backfill may append it again.
		w.logger.ErrorContext(ctx, "Failed to mark as exported",
			log.FieldTransactionID, id,
			log.FieldSheetsRef, ref,
			log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Exported ledger entry",
		log.FieldTransactionID, t.ID,
		log.FieldTransactionKnd, string(t.Kind),
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldSheetsRef, ref)
	return nil
}

// ProcessPending exports one batch of applied entries that were never
// exported. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupExportCheck exports a larger backlog at worker startup, covering
// events published while the worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup export completed", "exported", n)
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	ids, err := w.source.PendingExports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}

	exported := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.ExportTransaction(ctx, id); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export pending entry",
				log.FieldTransactionID, id,
				log.FieldError, err)
			continue
		}
		exported++
	}
	return exported, nil
}
