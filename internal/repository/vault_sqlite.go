package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteVaultStore implements VaultStore using SQLite.
type SQLiteVaultStore struct {
	*sqlVaultStore
	path string
}

// NewSQLiteVaultStore opens (and migrates) a SQLite vault database.
// dbPath is the path to the database file (e.g., "./data/vault.db").
func NewSQLiteVaultStore(dbPath string) (*SQLiteVaultStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteVaultStore] Initialized with database: %s", dbPath)
	return &SQLiteVaultStore{
		sqlVaultStore: &sqlVaultStore{db: db, dialect: sqliteDialect},
		path:          dbPath,
	}, nil
}

var sqliteDialect = dialect{
	name: "sqlite",
	incrementCounter: `
		INSERT INTO vault_counters (counter_key, counter_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(counter_key) DO UPDATE SET
			counter_value = vault_counters.counter_value + excluded.counter_value,
			updated_at = excluded.updated_at`,
	resetCounter: `
		INSERT INTO vault_counters (counter_key, counter_value, updated_at)
		VALUES (?, 0, ?)
		ON CONFLICT(counter_key) DO UPDATE SET
			counter_value = 0,
			updated_at = excluded.updated_at`,
	insertAccount: `
		INSERT INTO vault_accounts (account_hash, label, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_hash) DO NOTHING`,
}

func createSQLiteTables(db *sql.DB) error {
	return execSchema(db, []string{
		`CREATE TABLE IF NOT EXISTS vault_accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_hash TEXT NOT NULL UNIQUE,
			label TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vault_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL REFERENCES vault_accounts(id),
			ts_unix INTEGER NOT NULL,
			nonce TEXT NOT NULL,
			payload_hash TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			approved INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_account_approved ON vault_snapshots(account_id, approved, id)`,
		`CREATE TABLE IF NOT EXISTS vault_counters (
			counter_key TEXT PRIMARY KEY,
			counter_value INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
	})
}

// GetStats adds the database file size to the common stats.
func (r *SQLiteVaultStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := r.sqlVaultStore.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize
	stats["path"] = r.path

	return stats, nil
}

// Ensure SQLiteVaultStore implements VaultStore
var _ VaultStore = (*SQLiteVaultStore)(nil)
