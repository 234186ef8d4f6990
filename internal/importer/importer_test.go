package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/storage"
)

type fakeExtractor struct {
	inputs []core.Input
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) ([]core.Input, error) {
	return f.inputs, f.err
}

func newFixture(t *testing.T, ext *fakeExtractor) (*Manager, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(context.Background(), storage.NewMemoryKV())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewManager(ext, store), store
}

func TestImportDropsGateFailingCandidates(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{inputs: []core.Input{
		{Date: "2024-05-10", Memo: "milk", Amount: 238},
		{Date: "2024-05-10", Memo: "phantom line", Amount: 0},
	}}
	mgr, store := newFixture(t, ext)

	out := mgr.Start(ctx, []byte("img"), "image/jpeg")
	if out.State != StateDone {
		t.Fatalf("state = %s, want done", out.State)
	}
	if out.Inserted != 1 || out.DuplicatesDropped != 0 {
		t.Fatalf("inserted=%d dropped=%d, want 1/0", out.Inserted, out.DuplicatesDropped)
	}
	if store.Len() != 1 {
		t.Fatalf("ledger size = %d, want 1", store.Len())
	}
	if groups := aggregate.ByMonth(store.Snapshot()); len(groups) != 1 {
		t.Fatalf("byMonth has %d keys, want 1", len(groups))
	}
	if out.Month != "2024-05" {
		t.Fatalf("month = %s, want 2024-05", out.Month)
	}
}

func TestImportAllDuplicatesDeclined(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{inputs: []core.Input{
		{Date: "2024-05-10", Memo: "coffee", Amount: 450},
	}})

	seed, err := core.Normalize(core.Input{Date: "2024-05-10", Memo: "coffee", Amount: 450}, time.Now())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := store.Insert(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	out := mgr.Start(ctx, []byte("img"), "image/jpeg")
	if out.State != StateAwaitingConfirmation {
		t.Fatalf("state = %s, want awaiting_confirmation", out.State)
	}
	if len(out.Duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(out.Duplicates))
	}

	confirmed, err := mgr.Confirm(ctx, false)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.State != StateIdle || confirmed.Inserted != 0 {
		t.Fatalf("decline outcome = %+v, want idle with no inserts", confirmed)
	}
	if store.Len() != 1 {
		t.Fatalf("ledger size = %d, want unchanged 1", store.Len())
	}
}

func TestImportForceInsertDuplicates(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{inputs: []core.Input{
		{Date: "2024-05-10", Memo: "coffee", Amount: 450},
	}})

	seed, _ := core.Normalize(core.Input{Date: "2024-05-10", Memo: "coffee", Amount: 450}, time.Now())
	if err := store.Insert(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if out := mgr.Start(ctx, []byte("img"), "image/jpeg"); out.State != StateAwaitingConfirmation {
		t.Fatalf("state = %s, want awaiting_confirmation", out.State)
	}
	out, err := mgr.Confirm(ctx, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if out.State != StateDone || out.Inserted != 1 {
		t.Fatalf("outcome = %+v, want done with 1 insert", out)
	}
	if store.Len() != 2 {
		t.Fatalf("ledger size = %d, want 2 independent entries", store.Len())
	}
}

func TestConfirmReclassifiesAgainstCurrentLedger(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{inputs: []core.Input{
		{Date: "2024-05-10", Memo: "coffee", Amount: 450},
	}})

	seed, _ := core.Normalize(core.Input{Date: "2024-05-10", Memo: "coffee", Amount: 450}, time.Now())
	if err := store.Insert(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if out := mgr.Start(ctx, []byte("img"), "image/jpeg"); out.State != StateAwaitingConfirmation {
		t.Fatalf("state = %s", out.State)
	}

	// The matching record is deleted while the prompt is open; the answer
	// must see the edit.
	if err := store.Remove(ctx, seed.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out, err := mgr.Confirm(ctx, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if out.Inserted != 1 || store.Len() != 1 {
		t.Fatalf("inserted=%d size=%d, want exactly one entry", out.Inserted, store.Len())
	}
}

func TestImportExtractionFailure(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{err: errors.New("model returned garbage")})

	out := mgr.Start(ctx, []byte("img"), "image/jpeg")
	if out.State != StateFailed {
		t.Fatalf("state = %s, want failed", out.State)
	}
	if out.Err == "" {
		t.Fatal("failure message must be preserved for display")
	}
	if store.Len() != 0 {
		t.Fatal("failed import must not mutate the ledger")
	}

	// Terminal states return control to Idle: the next action runs.
	if mgr.Pending() {
		t.Fatal("no confirmation should be pending after a failure")
	}
}

func TestImportNothingToAdd(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{inputs: []core.Input{
		{Memo: "   ", Amount: 100}, // fails the gate
	}})

	out := mgr.Start(ctx, []byte("img"), "image/jpeg")
	if out.State != StateIdle || out.Message == "" {
		t.Fatalf("outcome = %+v, want idle with a message", out)
	}
	if store.Len() != 0 {
		t.Fatal("ledger must be unchanged")
	}
}

func TestStartRefusedWhileConfirmationPending(t *testing.T) {
	ctx := context.Background()
	mgr, store := newFixture(t, &fakeExtractor{inputs: []core.Input{
		{Date: "2024-05-10", Memo: "coffee", Amount: 450},
	}})
	seed, _ := core.Normalize(core.Input{Date: "2024-05-10", Memo: "coffee", Amount: 450}, time.Now())
	if err := store.Insert(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if out := mgr.Start(ctx, []byte("img"), "image/jpeg"); out.State != StateAwaitingConfirmation {
		t.Fatalf("state = %s", out.State)
	}
	second := mgr.Start(ctx, []byte("img2"), "image/jpeg")
	if second.State != StateAwaitingConfirmation || second.Inserted != 0 {
		t.Fatalf("second import should be refused while a prompt is open, got %+v", second)
	}
}

func TestConfirmWithoutPending(t *testing.T) {
	mgr, _ := newFixture(t, &fakeExtractor{})
	if _, err := mgr.Confirm(context.Background(), true); !errors.Is(err, ErrNoPendingImport) {
		t.Fatalf("got %v, want ErrNoPendingImport", err)
	}
}
