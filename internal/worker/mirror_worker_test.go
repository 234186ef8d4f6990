package worker

import (
	"context"
	"testing"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
)

func newWorker(t *testing.T) (*MirrorWorker, *ledger.Store, *memory.Store) {
	t.Helper()
	store, err := ledger.Open(context.Background(), storage.NewMemoryKV())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	mirror := memory.New()
	return NewMirrorWorker(store, mirror, mirror), store, mirror
}

func insert(t *testing.T, store *ledger.Store, memo string) core.Transaction {
	t.Helper()
	tx, err := core.Normalize(core.Input{Date: "2024-05-10", Memo: memo, Amount: 100}, time.Now())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := store.Insert(context.Background(), tx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return tx
}

func TestCreatedEventAppendsRow(t *testing.T) {
	w, store, mirror := newWorker(t)
	tx := insert(t, store, "milk")

	msg := amqp.NewLedgerEventMessage(amqp.EventCreated, store.Revision(), tx.ID)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("rows = %v", rows)
	}
}

func TestDeletedEventTriggersFullResync(t *testing.T) {
	ctx := context.Background()
	w, store, mirror := newWorker(t)
	keep := insert(t, store, "keep")
	gone := insert(t, store, "gone")

	if err := w.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(mirror.Rows()) != 2 {
		t.Fatalf("rows = %d, want 2", len(mirror.Rows()))
	}

	if err := store.Remove(ctx, gone.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	msg := amqp.NewLedgerEventMessage(amqp.EventDeleted, store.Revision(), gone.ID)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != keep.ID {
		t.Fatalf("rows = %v, want only the kept record", rows)
	}
}

func TestStaleEventSkipped(t *testing.T) {
	ctx := context.Background()
	w, store, mirror := newWorker(t)
	tx := insert(t, store, "milk")

	msg := amqp.NewLedgerEventMessage(amqp.EventCreated, store.Revision(), tx.ID)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Redelivery of the same message must not duplicate the row.
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle replay: %v", err)
	}
	if len(mirror.Rows()) != 1 {
		t.Fatalf("rows = %d, replay must not append again", len(mirror.Rows()))
	}
}

func TestCreatedEventForVanishedRecordResyncs(t *testing.T) {
	ctx := context.Background()
	w, store, mirror := newWorker(t)
	tx := insert(t, store, "milk")

	rev := store.Revision()
	if err := store.Remove(ctx, tx.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	msg := amqp.NewLedgerEventMessage(amqp.EventCreated, rev+1, tx.ID)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatalf("rows = %d, vanished record must not be mirrored", len(mirror.Rows()))
	}
}

func TestHandleEventSeesOtherProcessWrites(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	// The worker opens its store before the writer commits anything,
	// mimicking two processes sharing one database.
	readerStore, err := ledger.Open(ctx, kv)
	if err != nil {
		t.Fatalf("open reader store: %v", err)
	}
	mirror := memory.New()
	w := NewMirrorWorker(readerStore, mirror, mirror)

	writerStore, err := ledger.Open(ctx, kv)
	if err != nil {
		t.Fatalf("open writer store: %v", err)
	}
	tx := insert(t, writerStore, "milk")

	msg := amqp.NewLedgerEventMessage(amqp.EventCreated, writerStore.Revision(), tx.ID)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("rows = %v, want the writer's record", rows)
	}
}

func TestUnknownEventDroppedWithoutRetry(t *testing.T) {
	w, store, mirror := newWorker(t)
	insert(t, store, "milk")

	msg := amqp.NewLedgerEventMessage("exploded", store.Revision())
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown event must be dropped, not redelivered forever: %v", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatalf("rows = %d, unknown event must not touch the mirror", len(mirror.Rows()))
	}

	// The dropped event still advances the replay cursor, so a later
	// redelivery is recognized as stale.
	next := amqp.NewLedgerEventMessage("exploded", store.Revision())
	if err := w.HandleEvent(context.Background(), next); err != nil {
		t.Fatalf("replay of the dropped event: %v", err)
	}
}
