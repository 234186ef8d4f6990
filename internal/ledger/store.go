// Package ledger owns the canonical transaction collection. Every aggregate
// is derived from it, never stored; the persistence collaborator only ever
// sees whole-ledger snapshots written through after each mutation.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// kvKey is the single persistence slot holding the serialized ledger.
const kvKey = "ledger/v1"

var ErrNotFound = errors.New("transaction not found")

// Store is the mutable, in-memory source of truth. A mutex guards it because
// the HTTP layer is concurrent even though the logical model is a single
// writer; every mutation persists synchronously before returning.
type Store struct {
	mu       sync.Mutex
	items    map[string]core.Transaction
	revision int64
	kv       storage.KV
}

// Open loads the stored ledger, treating absent or corrupt data as empty.
// Startup never fails on bad payloads: the previous snapshot is simply gone.
func Open(ctx context.Context, kv storage.KV) (*Store, error) {
	s := &Store{items: make(map[string]core.Transaction), kv: kv}

	raw, ok, err := kv.Get(ctx, kvKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !ok {
		return s, nil
	}

	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		slog.WarnContext(ctx, "Stored ledger is unreadable, starting empty", "error", err)
		return s, nil
	}
	for _, tx := range txs {
		s.items[tx.ID] = tx
	}
	return s, nil
}

// Insert appends a record. The caller assigns the ID via core.Normalize; the
// validity check here is defensive and should be unreachable in correct
// callers.
func (s *Store) Insert(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if tx.ID == "" {
		return fmt.Errorf("insert: %w", errors.New("missing id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[tx.ID]; exists {
		return fmt.Errorf("insert: duplicate id %s", tx.ID)
	}
	s.items[tx.ID] = tx
	return s.commit(ctx)
}

// Update replaces the record with the given ID in full. There is no partial
// update and no silent insert: an absent ID is a visible failure.
func (s *Store) Update(ctx context.Context, id string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	tx.ID = id
	s.items[id] = tx
	return s.commit(ctx)
}

// Remove deletes by ID. Removing an absent ID is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return nil
	}
	delete(s.items, id)
	return s.commit(ctx)
}

// BulkMerge applies an import decision in one synchronous step: newRecords
// are inserted unconditionally; duplicates are inserted only when force is
// set, each under a fresh ID so they remain independent entries rather than
// being collapsed into their pre-existing match. Returns what was inserted.
func (s *Store) BulkMerge(ctx context.Context, newRecords, duplicates []core.Transaction, force bool) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map: a bad record late
	// in the batch must not leave earlier inserts in memory without a
	// matching commit.
	for _, tx := range newRecords {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("bulk merge: %w", err)
		}
	}
	if force {
		for _, tx := range duplicates {
			if err := tx.Validate(); err != nil {
				return nil, fmt.Errorf("bulk merge: %w", err)
			}
		}
	}

	inserted := make([]core.Transaction, 0, len(newRecords)+len(duplicates))
	for _, tx := range newRecords {
		s.items[tx.ID] = tx
		inserted = append(inserted, tx)
	}
	if force {
		for _, tx := range duplicates {
			tx.ID = uuid.NewString()
			s.items[tx.ID] = tx
			inserted = append(inserted, tx)
		}
	}
	if len(inserted) == 0 {
		return nil, nil
	}
	if err := s.commit(ctx); err != nil {
		return nil, err
	}
	return inserted, nil
}

// Clear empties the ledger.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]core.Transaction)
	return s.commit(ctx)
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	return tx, ok
}

// Snapshot returns a copy of the ledger ordered by date then ID, safe for
// the pure aggregation functions to consume.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Reload replaces the in-memory state with what the persistence layer holds
// now. The mirror worker runs in a separate process from the writer and
// calls this before acting on a change event.
func (s *Store) Reload(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, kvKey)
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	items := make(map[string]core.Transaction)
	if ok {
		var txs []core.Transaction
		if err := json.Unmarshal([]byte(raw), &txs); err != nil {
			return fmt.Errorf("reload ledger: %w", err)
		}
		for _, tx := range txs {
			items[tx.ID] = tx
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Revision is a monotonic counter bumped on every mutation. Callers use it
// to key caches of derived data.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// commit bumps the revision and writes the whole ledger through to the
// persistence collaborator. Callers hold the mutex.
func (s *Store) commit(ctx context.Context) error {
	s.revision++
	raw, err := json.Marshal(s.sortedLocked())
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.kv.Set(ctx, kvKey, string(raw)); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func (s *Store) sortedLocked() []core.Transaction {
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
