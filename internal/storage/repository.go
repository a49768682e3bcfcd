package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded indicates a write would push total usage past the quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrNotConfigured indicates the database was not opened.
	ErrNotConfigured = errors.New("storage: database not configured")
)

const (
	getValueSQL = `SELECT value FROM kv WHERE key = ?;`

	putValueSQL = `INSERT INTO kv (key, value, updated_at)
    VALUES (?, ?, ?)
    ON CONFLICT (key) DO UPDATE
    SET value      = excluded.value,
        updated_at = excluded.updated_at;`

	deleteValueSQL = `DELETE FROM kv WHERE key = ?;`

	usageExcludingSQL = `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?;`

	listEntriesSQL = `SELECT key, LENGTH(value), updated_at FROM kv ORDER BY key;`
)

// KV is the persistence contract the history and settings records rely on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is a SQLite-backed KV with a byte quota across all values.
type Store struct {
	db    *sql.DB
	quota int64
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

// Get returns the value for key or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var value []byte
	if err := db.QueryRowContext(ctx, getValueSQL, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put replaces the value for key. The quota counts the new value plus every
// other stored value; the old value of key does not count.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put %s: %w", key, err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var others int64
		if err := tx.QueryRowContext(ctx, usageExcludingSQL, key).Scan(&others); err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if others+int64(len(value)) > s.quota {
			return fmt.Errorf("put %s (%d bytes, %d in use, quota %d): %w", key, len(value), others, s.quota, ErrQuotaExceeded)
		}
	}

	if _, err := tx.ExecContext(ctx, putValueSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return tx.Commit()
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, deleteValueSQL, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Usage lists stored keys with their sizes.
func (s *Store) Usage(ctx context.Context) (Usage, error) {
	db, err := s.getDB()
	if err != nil {
		return Usage{}, err
	}

	rows, err := db.QueryContext(ctx, listEntriesSQL)
	if err != nil {
		return Usage{}, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	usage := Usage{QuotaBytes: s.quota}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Key, &entry.Size, &entry.UpdatedAt); err != nil {
			return Usage{}, err
		}
		usage.UsedBytes += entry.Size
		usage.Entries = append(usage.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return Usage{}, err
	}
	return usage, nil
}

var _ KV = (*Store)(nil)
