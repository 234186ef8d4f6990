// Package backend selects and initializes the persistence layer.
package backend

import (
	"fmt"
	"log/slog"

	"kakeibo/internal/config"
	"kakeibo/internal/storage"
)

// Type represents the kind of key-value store backing the ledger.
type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{Memory, SQLite}
}

// Open builds the configured KV store. The sqlite backend migrates its
// schema on open; the memory backend starts empty and loses everything on
// exit.
func Open(cfg *config.Config, logger *slog.Logger) (storage.KV, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid data backend %q, valid: %v", cfg.DataBackend, Types())
	}

	switch t {
	case SQLite:
		if cfg.SQLiteDBPath == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return kv, nil
	default:
		logger.Info("Initialized memory backend")
		return storage.NewMemoryKV(), nil
	}
}
