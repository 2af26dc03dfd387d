package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memoria/internal/dbx"
)

var _ Repository = (*SQLiteRepository)(nil)

const (
	selectEntry = `SELECT value, updated_at_ms FROM metadata WHERE key = ?`
	upsertEntry = `
		INSERT INTO metadata (key, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms`
	deleteEntry = `DELETE FROM metadata WHERE key = ?`
)

// SQLiteRepository works on a *sql.DB or inside a transaction.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	e, ok, err := r.Lookup(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return e.Value, nil
}

func (r *SQLiteRepository) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	var (
		value     []byte
		updatedAt int64
	)
	switch err := r.db.QueryRowContext(ctx, selectEntry, key).Scan(&value, &updatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, false, nil
	case err != nil:
		return Entry{}, false, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return Entry{Value: value, UpdatedAt: time.UnixMilli(updatedAt)}, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := r.db.ExecContext(ctx, upsertEntry, key, value, r.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteEntry, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}
