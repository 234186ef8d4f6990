// Package services orchestrates ledger mutations across the store, the
// import manager and the event broker.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/importer"
	"kakeibo/internal/ledger"
)

// EventPublisher publishes ledger change notifications. A nil *amqp.Client
// satisfies it as a no-op.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event string, revision int64, ids ...string) error
}

// TransactionService couples every ledger mutation with an event publish.
// Publishing is best effort: the local write is the source of truth, so a
// broker failure is logged and never surfaced to the caller.
type TransactionService struct {
	store     *ledger.Store
	publisher EventPublisher
	imports   *importer.Manager
	now       func() time.Time
}

func NewTransactionService(store *ledger.Store, publisher EventPublisher, imports *importer.Manager) *TransactionService {
	if publisher == nil {
		publisher = (*amqp.Client)(nil)
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		imports:   imports,
		now:       time.Now,
	}
}

// Create normalizes the input, inserts it and announces the new record.
func (s *TransactionService) Create(ctx context.Context, in core.Input) (core.Transaction, error) {
	tx, err := core.Normalize(in, s.now())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("normalize transaction: %w", err)
	}
	if err := s.store.Insert(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.publish(ctx, amqp.EventCreated, tx.ID)
	return tx, nil
}

// Update replaces the record stored under id.
func (s *TransactionService) Update(ctx context.Context, id string, in core.Input) (core.Transaction, error) {
	tx, err := core.Normalize(in, s.now())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("normalize transaction: %w", err)
	}
	if err := s.store.Update(ctx, id, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	tx.ID = id
	s.publish(ctx, amqp.EventUpdated, id)
	return tx, nil
}

// Delete removes the record if present. Removing an absent ID is not an
// error, and no event is published for it.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	_, existed := s.store.Get(id)
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}
	if existed {
		s.publish(ctx, amqp.EventDeleted, id)
	}
	return nil
}

// Clear empties the ledger.
func (s *TransactionService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	s.publish(ctx, amqp.EventCleared)
	return nil
}

// Import runs one receipt import and announces the merged records.
func (s *TransactionService) Import(ctx context.Context, image []byte, mimeType string) importer.Outcome {
	out := s.imports.Start(ctx, image, mimeType)
	if out.State == importer.StateDone && out.Inserted > 0 {
		s.publish(ctx, amqp.EventImported)
	}
	return out
}

// ConfirmImport answers an outstanding duplicate prompt.
func (s *TransactionService) ConfirmImport(ctx context.Context, force bool) (importer.Outcome, error) {
	out, err := s.imports.Confirm(ctx, force)
	if err != nil {
		return out, err
	}
	if out.State == importer.StateDone && out.Inserted > 0 {
		s.publish(ctx, amqp.EventImported)
	}
	return out, nil
}

// ImportPending reports whether a duplicate prompt is open.
func (s *TransactionService) ImportPending() bool {
	return s.imports.Pending()
}

func (s *TransactionService) publish(ctx context.Context, event string, ids ...string) {
	if err := s.publisher.PublishLedgerEvent(ctx, event, s.store.Revision(), ids...); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event, "error", err)
	}
}
