// Package storage provides the local persistence collaborator: a synchronous
// key/value store the ledger writes through after every mutation and reads
// back once at process start.
package storage

import "context"

// KV is the persistence port. Absent keys are reported via ok=false, not an
// error; corrupt values are the caller's problem to detect on decode.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
