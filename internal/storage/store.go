package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"insulin-calc/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Open creates the database file if needed and returns a quota-enforcing Store.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage.path is required")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return newStore(ctx, cfg.Path, cfg.QuotaBytes)
}

// NewMemoryStore creates an in-memory store, mainly for tests.
func NewMemoryStore(quotaBytes int64) (*Store, error) {
	return newStore(context.Background(), ":memory:", quotaBytes)
}

func newStore(ctx context.Context, dsn string, quotaBytes int64) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, quota: quotaBytes}, nil
}
