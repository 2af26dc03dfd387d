package cacheentries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/cache"
	"github.com/dmitrijs2005/memoria/internal/dbx"
)

var _ cache.Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (cache.Record, bool, error) {
	var (
		value    []byte
		storedAt int64
		ttl      int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at_ms, ttl_ms FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &storedAt, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Record{}, false, nil
	}
	if err != nil {
		return cache.Record{}, false, fmt.Errorf("failed to load cache entry[%s]: %w", key, err)
	}

	return cache.Record{
		Value:    value,
		StoredAt: time.UnixMilli(storedAt),
		TTL:      time.Duration(ttl) * time.Millisecond,
	}, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, rec cache.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, stored_at_ms, ttl_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			stored_at_ms = excluded.stored_at_ms,
			ttl_ms = excluded.ttl_ms
	`, key, rec.Value, rec.StoredAt.UnixMilli(), rec.TTL.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save cache entry[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry[%s]: %w", key, err)
	}
	return nil
}

// deleteBatch bounds the IN clause below SQLite's host parameter limit.
const deleteBatch = 500

// DeleteExpired collects and removes stale rows in one transaction so the
// returned keys match what was deleted.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var keys []string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		keys, err = dbx.QueryStrings(ctx, tx,
			`SELECT key FROM cache_entries WHERE stored_at_ms + ttl_ms < ?`, now.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to select expired cache entries: %w", err)
		}

		for start := 0; start < len(keys); start += deleteBatch {
			batch := keys[start:min(start+deleteBatch, len(keys))]
			q := `DELETE FROM cache_entries WHERE key IN (` + dbx.Placeholders(len(batch)) + `)`
			if _, err := tx.ExecContext(ctx, q, dbx.Args(batch)...); err != nil {
				return fmt.Errorf("failed to delete expired cache entries: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Count returns the number of persisted rows, stale ones included.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
