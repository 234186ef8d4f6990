// Package importer orchestrates one receipt import: extraction, candidate
// normalization, duplicate classification and the confirmation policy, then
// a single synchronous merge into the ledger.
//
// One import action runs at a time. The Manager's mutex serializes callers,
// so a second import started while another is running queues behind it
// rather than racing unordered completions into the same ledger.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/dedupe"
	"kakeibo/internal/ledger"
	"kakeibo/internal/vision"
)

// State names the phases of one import action. Failed and Done are
// terminal; both hand control back to Idle for the next action.
type State string

const (
	StateIdle                 State = "idle"
	StateExtracting           State = "extracting"
	StateNormalizing          State = "normalizing"
	StateClassifying          State = "classifying"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateMerging              State = "merging"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// ErrNoPendingImport is returned by Confirm when nothing is awaiting an
// answer.
var ErrNoPendingImport = errors.New("no import awaiting confirmation")

// Outcome reports where an import action ended up and what it changed.
type Outcome struct {
	State             State              `json:"state"`
	Inserted          int                `json:"inserted"`
	DuplicatesDropped int                `json:"duplicatesDropped"`
	Duplicates        []core.Transaction `json:"duplicates,omitempty"`
	Month             string             `json:"month,omitempty"`
	Message           string             `json:"message,omitempty"`
	Err               string             `json:"error,omitempty"`
}

// Manager runs import actions against one ledger store.
type Manager struct {
	mu        sync.Mutex
	extractor vision.Extractor
	store     *ledger.Store
	now       func() time.Time

	// pending holds normalized duplicates awaiting the user's force-insert
	// answer. Nil when no confirmation is outstanding.
	pending []core.Transaction
}

func NewManager(extractor vision.Extractor, store *ledger.Store) *Manager {
	return &Manager{extractor: extractor, store: store, now: time.Now}
}

// Start runs one import action from an image to a terminal state or to
// AwaitingConfirmation. While a previous action still awaits confirmation,
// new imports are refused so two unresolved batches never interleave.
func (m *Manager) Start(ctx context.Context, image []byte, mimeType string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		return Outcome{
			State:   StateAwaitingConfirmation,
			Message: "previous import is awaiting confirmation",
		}
	}

	// Extracting. A collaborator failure is preserved for display and never
	// silently retried.
	inputs, err := m.extractor.Extract(ctx, image, mimeType)
	if err != nil {
		slog.ErrorContext(ctx, "Receipt extraction failed", "error", err)
		return Outcome{State: StateFailed, Err: err.Error()}
	}

	// Normalizing. Gate failures are extraction noise, dropped without
	// being reported as errors.
	candidates := make([]core.Transaction, 0, len(inputs))
	for _, in := range inputs {
		tx, err := core.Normalize(in, m.now())
		if err != nil {
			slog.DebugContext(ctx, "Dropping extracted candidate", "memo", in.Memo, "error", err)
			continue
		}
		candidates = append(candidates, tx)
	}

	// Classifying against the ledger as it is now, not as it was when the
	// user picked the image: intervening manual edits are honored.
	cls := dedupe.Classify(candidates, m.store.Snapshot())

	switch {
	case len(cls.New) > 0:
		// New records merge unconditionally; duplicates are dropped, not
		// inserted, and both counts are reported.
		return m.merge(ctx, cls.New, nil, false, len(cls.Duplicate))
	case len(cls.Duplicate) > 0:
		m.pending = cls.Duplicate
		return Outcome{
			State:      StateAwaitingConfirmation,
			Duplicates: append([]core.Transaction(nil), cls.Duplicate...),
			Message:    "all extracted records look like duplicates",
		}
	default:
		return Outcome{State: StateIdle, Message: "nothing to add"}
	}
}

// Confirm answers an outstanding duplicate prompt. A "no" returns to Idle
// with no mutation. A "yes" re-classifies the pending batch against the
// current ledger immediately before merging, so a record whose match was
// deleted in the meantime merges as new while the rest are force-inserted
// under fresh IDs.
func (m *Manager) Confirm(ctx context.Context, force bool) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return Outcome{State: StateIdle}, ErrNoPendingImport
	}
	batch := m.pending
	m.pending = nil

	if !force {
		return Outcome{State: StateIdle, Message: "duplicates discarded"}, nil
	}

	cls := dedupe.Classify(batch, m.store.Snapshot())
	return m.merge(ctx, cls.New, cls.Duplicate, true, 0), nil
}

// Pending reports whether a confirmation is outstanding.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// merge performs the single synchronous bulk merge. Callers hold the mutex.
func (m *Manager) merge(ctx context.Context, newRecords, duplicates []core.Transaction, force bool, dropped int) Outcome {
	inserted, err := m.store.BulkMerge(ctx, newRecords, duplicates, force)
	if err != nil {
		slog.ErrorContext(ctx, "Import merge failed", "error", err)
		return Outcome{State: StateFailed, Err: err.Error()}
	}

	out := Outcome{
		State:             StateDone,
		Inserted:          len(inserted),
		DuplicatesDropped: dropped,
	}
	if len(inserted) > 0 {
		// The reporting month follows the first inserted record.
		out.Month = inserted[0].Date.MonthKey()
	}
	slog.InfoContext(ctx, "Import merged",
		"inserted", out.Inserted,
		"duplicates_dropped", out.DuplicatesDropped,
		"month", out.Month)
	return out
}
