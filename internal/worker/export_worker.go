// Package worker consumes expense events and appends them to the audit
// journal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensio/internal/amqp"
	"expensio/internal/core"
)

// RecordFetcher loads one record, scoped to its owner.
type RecordFetcher interface {
	GetByID(ctx context.Context, id, ownerID string) (*core.ExpenseRecord, error)
}

// RowAppender appends one row to the journal.
type RowAppender interface {
	AppendRow(ctx context.Context, row []any) error
}

// ExportWorker turns expense events into journal rows. Events carry only
// identifiers, so created and updated rows are filled from the store at
// export time.
type ExportWorker struct {
	store   RecordFetcher
	journal RowAppender
}

func NewExportWorker(store RecordFetcher, journal RowAppender) *ExportWorker {
	return &ExportWorker{store: store, journal: journal}
}

// HandleEvent processes a single expense event. A record that disappeared
// between the event and the export is journaled without its details rather
// than requeued forever.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"type", msg.Type,
		"id", msg.ID)

	if msg.Type == amqp.EventDeleted {
		return w.appendRow(ctx, msg, nil)
	}

	rec, err := w.store.GetByID(ctx, msg.ID, msg.OwnerID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Expense gone before export, journaling event only",
			"type", msg.Type, "id", msg.ID)
		return w.appendRow(ctx, msg, nil)
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.appendRow(ctx, msg, rec)
}

func (w *ExportWorker) appendRow(ctx context.Context, msg *amqp.ExpenseEventMessage, rec *core.ExpenseRecord) error {
	row := []any{
		msg.Timestamp.UTC().Format(time.RFC3339),
		msg.Type,
		msg.ID,
		msg.OwnerID,
	}
	if rec != nil {
		row = append(row,
			rec.Amount.String(),
			string(rec.Category),
			rec.Description,
			rec.Date.UTC().Format("2006-01-02"),
		)
	}

	if err := w.journal.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append to journal: %w", err)
	}

	slog.InfoContext(ctx, "Journaled expense event",
		"type", msg.Type,
		"id", msg.ID)

	return nil
}
