// Package worker mirrors ledger changes to a spreadsheet in response to
// AMQP events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/ledger"
	"kakeibo/internal/sheets"
)

// MirrorWorker keeps the spreadsheet mirror aligned with the ledger. The
// mirror is derived data: any missed event is repaired by the next full
// replace, so handlers favor simplicity over row-level patching.
type MirrorWorker struct {
	store  *ledger.Store
	writer sheets.TransactionWriter
	mirror sheets.LedgerMirror

	// lastRevision is the highest ledger revision mirrored so far. Events
	// at or below it are stale replays and skipped.
	lastRevision int64
}

func NewMirrorWorker(store *ledger.Store, writer sheets.TransactionWriter, mirror sheets.LedgerMirror) *MirrorWorker {
	return &MirrorWorker{
		store:  store,
		writer: writer,
		mirror: mirror,
	}
}

// HandleEvent processes one ledger change notification.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Revision <= w.lastRevision {
		slog.DebugContext(ctx, "Skipping stale ledger event",
			"event", msg.Event,
			"revision", msg.Revision,
			"mirrored", w.lastRevision)
		return nil
	}

	// The writer lives in another process; pick up its latest state.
	if err := w.store.Reload(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}

	switch msg.Event {
	case amqp.EventCreated:
		if err := w.appendByIDs(ctx, msg.IDs); err != nil {
			return err
		}
	case amqp.EventUpdated, amqp.EventDeleted, amqp.EventImported, amqp.EventCleared:
		if err := w.Resync(ctx); err != nil {
			return err
		}
	default:
		// Returning an error would requeue the delivery and spin forever on
		// a message this worker can never handle. The mirror is derived
		// data; the next known event repairs anything missed.
		slog.WarnContext(ctx, "Dropping unknown ledger event",
			"event", msg.Event,
			"revision", msg.Revision)
	}

	w.lastRevision = msg.Revision
	return nil
}

// Resync rewrites the full mirror from the current ledger snapshot. Called
// at worker startup to repair anything missed while the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	snapshot := w.store.Snapshot()
	if err := w.mirror.Replace(ctx, snapshot); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynced", "rows", len(snapshot))
	return nil
}

func (w *MirrorWorker) appendByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		tx, ok := w.store.Get(id)
		if !ok {
			// The record was edited away before we got here. A full
			// resync restores consistency.
			slog.WarnContext(ctx, "Created record no longer in ledger, resyncing", "id", id)
			return w.Resync(ctx)
		}
		ref, err := w.writer.Append(ctx, tx)
		if err != nil {
			return fmt.Errorf("append transaction %s: %w", id, err)
		}
		slog.InfoContext(ctx, "Mirrored transaction", "id", id, "row", ref)
	}
	return nil
}
