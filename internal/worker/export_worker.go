// Package worker drives the asynchronous export of entries to the external
// journal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kassenbuch/internal/amqp"
	"kassenbuch/internal/ledger"
	"kassenbuch/internal/storage"
)

// ExportWorker consumes entry events and appends the affected entries to
// the export journal, tracking export state in the store.
type ExportWorker struct {
	store     *storage.SQLiteRepository
	exporter  ledger.EntryExporter
	batchSize int
}

func NewExportWorker(store *storage.SQLiteRepository, exporter ledger.EntryExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEntryEvent processes a single entry event from AMQP. Created and
// updated entries are (re-)exported; deletions leave the journal untouched
// since it is an append-only history.
func (w *ExportWorker) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEventMessage) error {
	slog.InfoContext(ctx, "Processing entry event",
		"action", msg.Action,
		"id", msg.ID)

	switch msg.Action {
	case amqp.EntryCreated, amqp.EntryUpdated:
		return w.exportEntry(ctx, msg.ID)
	case amqp.EntryDeleted:
		slog.DebugContext(ctx, "Skipping deleted entry, journal is append-only", "id", msg.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown entry event action", "action", msg.Action, "id", msg.ID)
		return nil
	}
}

// ProcessPending exports entries that are still marked pending. This is a
// backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending entries: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, entry := range pending {
		if err := w.exportEntry(ctx, entry.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "id", entry.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports a larger backlog of pending entries at worker start,
// recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending entries for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries at startup")
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending entries at startup", "count", len(pending))
	for _, entry := range pending {
		if err := w.exportEntry(ctx, entry.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry at startup", "id", entry.ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) exportEntry(ctx context.Context, id int64) error {
	entry, err := w.store.GetEntry(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		// Deleted before the event was processed; nothing to export.
		slog.WarnContext(ctx, "Entry vanished before export", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.exporter.AppendEntry(ctx, entry); err != nil {
		if markErr := w.store.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append entry to journal: %w", err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark entry exported: %w", err)
	}
	return nil
}
