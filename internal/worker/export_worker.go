// Package worker drains the ledger event queue into the export sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"jizhang/internal/amqp"
	"jizhang/internal/export"
)

// EventSource is the consuming side of the AMQP client.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(*amqp.LedgerEventMessage) error) error
}

// ExportWorker forwards each consumed ledger event to the row appender.
// A failed append propagates the error so the delivery is nacked and
// requeued; the sheet may lag but never silently drops an event.
type ExportWorker struct {
	source   EventSource
	appender export.RowAppender
}

func NewExportWorker(source EventSource, appender export.RowAppender) *ExportWorker {
	return &ExportWorker{
		source:   source,
		appender: appender,
	}
}

// Run consumes until ctx is cancelled. The same ctx bounds every append,
// so an in-flight export cannot outlive worker shutdown.
func (w *ExportWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Export worker started")
	return w.source.ConsumeEvents(ctx, func(ev *amqp.LedgerEventMessage) error {
		return w.handleEvent(ctx, ev)
	})
}

func (w *ExportWorker) handleEvent(ctx context.Context, ev *amqp.LedgerEventMessage) error {
	switch ev.Kind {
	case amqp.EventRecorded, amqp.EventDeleted:
	default:
		// Unknown kinds are logged and acked; requeueing cannot fix them.
		slog.Warn("Skipping event of unknown kind", "kind", ev.Kind, "record_id", ev.RecordID)
		return nil
	}

	if err := w.appender.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append event for record %d: %w", ev.RecordID, err)
	}

	slog.InfoContext(ctx, "Exported ledger event",
		"kind", ev.Kind,
		"record_id", ev.RecordID,
		"user_id", ev.UserID)
	return nil
}
