// Package sqlitekv stores blobs in a single SQLite file and keeps a short
// write history per key.
package sqlitekv

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/smart-finance/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultHistory is how many previous versions are kept per key.
const DefaultHistory = 20

// KV is a store.KV backed by SQLite.
type KV struct {
	db      *sql.DB
	history int
}

// Version is one historical value of a key.
type Version struct {
	ID        int64
	WrittenAt string
	Size      int
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*KV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitekv.Open: mkdir: %w", err)
		}
	}

	if err := RunMigrations(path); err != nil {
		return nil, fmt.Errorf("sqlitekv.Open: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv.Open: open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &KV{db: db, history: DefaultHistory}, nil
}

// RunMigrations applies the embedded schema migrations to the database at
// dbPath.
func RunMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Get implements store.KV.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitekv.Get: %w", err)
	}
	return value, nil
}

// Put implements store.KV. The previous value, if any, moves into the
// history table, which is trimmed to the configured depth.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitekv.Put: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blob_history (key, value) SELECT key, value FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitekv.Put: archive: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value); err != nil {
		return fmt.Errorf("sqlitekv.Put: upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM blob_history
		WHERE key = ? AND id NOT IN (
			SELECT id FROM blob_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, k.history); err != nil {
		return fmt.Errorf("sqlitekv.Put: trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitekv.Put: commit: %w", err)
	}
	return nil
}

// History lists the archived versions of key, newest first.
func (k *KV) History(ctx context.Context, key string) ([]Version, error) {
	rows, err := k.db.QueryContext(ctx,
		`SELECT id, written_at, length(value) FROM blob_history WHERE key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv.History: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.WrittenAt, &v.Size); err != nil {
			return nil, fmt.Errorf("sqlitekv.History: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Restore makes an archived version the current value of its key.
func (k *KV) Restore(ctx context.Context, key string, versionID int64) error {
	var value []byte
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM blob_history WHERE key = ? AND id = ?`, key, versionID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlitekv.Restore: %s version %d: %w", key, versionID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlitekv.Restore: %w", err)
	}
	return k.Put(ctx, key, value)
}

// Close implements store.KV.
func (k *KV) Close() error {
	return k.db.Close()
}

var _ store.KV = (*KV)(nil)
