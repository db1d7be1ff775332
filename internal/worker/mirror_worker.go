package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/sheets"
	"ledger/internal/storage"
)

// MirrorWorker keeps the spreadsheet copy of history rows in step with the
// store. Events carry ids only; row contents are always read back from the
// store, so a redelivered or out-of-order event converges on current state.
type MirrorWorker struct {
	store  storage.HistoryStore
	mirror sheets.Mirror
}

func NewMirrorWorker(store storage.HistoryStore, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleEvent is an amqp.HistoryHandler. Any failed id makes the whole
// event fail so the broker redelivers it.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.HistoryEvent) error {
	slog.InfoContext(ctx, "Processing history event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpMirror,
		"action", ev.Action,
		"ids", ev.IDs)

	var errs []error
	for _, id := range ev.IDs {
		var err error
		switch ev.Action {
		case amqp.ActionRemoved:
			err = w.clear(ctx, id)
		case amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionBulkCreated:
			err = w.sync(ctx, id)
		default:
			return fmt.Errorf("unknown action %q", ev.Action)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("history %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Backfill mirrors every history of one service month. It recovers rows
// whose events were lost while the worker was down.
func (w *MirrorWorker) Backfill(ctx context.Context, q core.MonthQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	rows, err := w.store.FindHistoryByMonth(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("load month %d-%d of service %d: %w", q.Year, q.Month, q.ServiceID, err)
	}

	synced := 0
	for _, h := range rows {
		if err := w.upsert(ctx, h); err != nil {
			slog.ErrorContext(ctx, "Failed to backfill history", log.FieldHistoryID, h.ID, log.FieldError, err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Backfill completed",
		log.FieldOperation, log.OpMirror,
		log.FieldServiceID, q.ServiceID,
		log.FieldYear, q.Year,
		log.FieldMonth, q.Month,
		"total", len(rows),
		"synced", synced)
	return synced, nil
}

func (w *MirrorWorker) sync(ctx context.Context, id int64) error {
	h, err := w.store.FindHistoryByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// removed before this event was handled
		return w.clear(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	return w.upsert(ctx, *h)
}

func (w *MirrorWorker) upsert(ctx context.Context, h core.History) error {
	ref, err := w.mirror.UpsertRow(ctx, sheets.RowFromHistory(h))
	metrics.MirrorRows.WithLabelValues("upsert", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	slog.DebugContext(ctx, "Mirrored history", log.FieldHistoryID, h.ID, "sheets_ref", ref)
	return nil
}

func (w *MirrorWorker) clear(ctx context.Context, id int64) error {
	err := w.mirror.ClearRow(ctx, id)
	metrics.MirrorRows.WithLabelValues("clear", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("clear row: %w", err)
	}
	return nil
}
