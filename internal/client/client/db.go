package client

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memoria/internal/client/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// busyTimeoutMs lets a second CLI process wait for the writer instead of
// failing with SQLITE_BUSY.
const busyTimeoutMs = 5000

// RunMigrations applies the embedded migrations that have not run yet and
// returns how many were applied.
func RunMigrations(ctx context.Context, db *sql.DB) (int, error) {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration provider: %w", err)
	}

	res, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return len(res), nil
}

// InitDatabase opens the local SQLite database at path and applies the
// embedded migrations. The caller owns the returned handle.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}

	// One connection keeps every statement on the same pragmas and avoids
	// writer contention inside a process.
	db.SetMaxOpenConns(1)

	if _, err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// sqliteDSN adds connection pragmas to a plain file path. DSNs that already
// carry parameters are used unchanged.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMs)
}
