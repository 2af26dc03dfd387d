package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("InitDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	db := openDB(t)

	for _, name := range []string{"goose_db_version", "metadata", "cache_entries"} {
		if !tableExists(t, db, name) {
			t.Fatalf("expected table %s to exist after migrations", name)
		}
	}
}

func TestInitDatabase_ReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memoria.db")

	db, err := InitDatabase(context.Background(), path)
	if err != nil {
		t.Fatalf("InitDatabase error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening an existing database must not re-run migrations.
	db, err = InitDatabase(context.Background(), path)
	if err != nil {
		t.Fatalf("InitDatabase (reopen) error: %v", err)
	}
	defer db.Close()

	n, err := RunMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no pending migrations, got %d", n)
	}
}

func TestRunMigrations_AppliesOnceOnFreshDB(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	defer db.Close()

	first, err := RunMigrations(ctx, db)
	if err != nil {
		t.Fatalf("RunMigrations (first) error: %v", err)
	}
	if first == 0 {
		t.Fatalf("expected migrations to be applied on a fresh database")
	}

	second, err := RunMigrations(ctx, db)
	if err != nil {
		t.Fatalf("RunMigrations (second) error: %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second run to be a no-op, applied %d", second)
	}
}

func TestInitDatabase_SetsPragmas(t *testing.T) {
	db := openDB(t)

	var timeout int
	if err := db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if timeout != busyTimeoutMs {
		t.Fatalf("busy_timeout = %d, want %d", timeout, busyTimeoutMs)
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data/memoria.db", "file:data/memoria.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"file:x.db?mode=memory", "file:x.db?mode=memory"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
