// Package sheets defines the outbound ports for mirroring the ledger to a
// spreadsheet.
package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends a single transaction row.
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// LedgerMirror replaces the mirrored sheet with the given snapshot.
	// Used after deletes and clears, where row-level patching is fragile.
	LedgerMirror interface {
		Replace(ctx context.Context, txs []core.Transaction) error
	}
)
