// Package worker runs the background consumers.
package worker

import (
	"context"
	"fmt"

	"finbot/internal/amqp"
	"finbot/internal/core"
	"finbot/internal/log"
	"finbot/internal/metrics"
)

// EventStore persists ledger events idempotently.
type EventStore interface {
	RecordEvent(ctx context.Context, e core.LedgerEvent) (bool, error)
}

// EventSource delivers ledger events until ctx is done.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler amqp.Handler) error
}

// JournalWorker copies ledger events from the broker into the journal.
type JournalWorker struct {
	source EventSource
	store  EventStore
	log    *log.Logger
}

func NewJournalWorker(source EventSource, store EventStore, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Default(log.ComponentJournal)
	}
	return &JournalWorker{source: source, store: store, log: logger}
}

// Run consumes until ctx is cancelled. A cancelled context is a clean stop.
func (w *JournalWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "Journal worker started")
	err := w.source.ConsumeLedgerEvents(ctx, w.HandleEvent)
	if ctx.Err() != nil {
		w.log.InfoContext(ctx, "Journal worker stopped")
		return nil
	}
	return err
}

// HandleEvent records one event. Duplicates are acknowledged without a
// second row; store errors are returned so the delivery is requeued.
func (w *JournalWorker) HandleEvent(ctx context.Context, e core.LedgerEvent) error {
	inserted, err := w.store.RecordEvent(ctx, e)
	if err != nil {
		metrics.LedgerEvents.WithLabelValues("journaled", "error").Inc()
		return fmt.Errorf("journal event %s: %w", e.ID, err)
	}

	outcome := "ok"
	if !inserted {
		outcome = "duplicate"
	}
	metrics.LedgerEvents.WithLabelValues("journaled", outcome).Inc()

	w.log.InfoContext(ctx, "Journaled ledger event",
		log.FieldEventID, e.ID,
		log.FieldEventKind, string(e.Kind),
		log.FieldMonth, e.Month,
		log.FieldAmount, e.Amount.String(),
		"duplicate", !inserted)
	return nil
}
