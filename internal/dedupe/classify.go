// Package dedupe partitions imported candidates into records that are new to
// the ledger and records that look like re-scans of something already there.
//
// Detection uses the derived identity key (date, normalized memo, amount,
// kind), never the storage ID: a candidate matching an existing record is
// reported as a duplicate, but the caller may still choose to insert it as an
// independent entry.
package dedupe

import "kakeibo/internal/core"

// Classification is the result of partitioning one candidate batch.
type Classification struct {
	New       []core.Transaction
	Duplicate []core.Transaction
}

// Classify partitions candidates against the existing ledger. It is pure:
// same inputs, same output, no side effects. An empty existing ledger makes
// every candidate new; duplicates within the candidate batch itself are not
// collapsed.
func Classify(candidates, existing []core.Transaction) Classification {
	seen := make(map[string]struct{}, len(existing))
	for _, tx := range existing {
		seen[tx.IdentityKey()] = struct{}{}
	}

	var out Classification
	for _, c := range candidates {
		if _, ok := seen[c.IdentityKey()]; ok {
			out.Duplicate = append(out.Duplicate, c)
		} else {
			out.New = append(out.New, c)
		}
	}
	return out
}
