package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLVaultStore implements VaultStore using MySQL.
type MySQLVaultStore struct {
	*sqlVaultStore
}

// NewMySQLVaultStore connects to MySQL and migrates the vault tables.
// dsn format: "user:password@tcp(host:port)/dbname"
func NewMySQLVaultStore(dsn string) (*MySQLVaultStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLVaultStore] Initialized")
	return &MySQLVaultStore{
		sqlVaultStore: &sqlVaultStore{db: db, dialect: mysqlDialect},
	}, nil
}

var mysqlDialect = dialect{
	name: "mysql",
	incrementCounter: `
		INSERT INTO vault_counters (counter_key, counter_value, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			counter_value = counter_value + VALUES(counter_value),
			updated_at = VALUES(updated_at)`,
	resetCounter: `
		INSERT INTO vault_counters (counter_key, counter_value, updated_at)
		VALUES (?, 0, ?)
		ON DUPLICATE KEY UPDATE
			counter_value = 0,
			updated_at = VALUES(updated_at)`,
	insertAccount: `
		INSERT IGNORE INTO vault_accounts (account_hash, label, created_at)
		VALUES (?, ?, ?)`,
}

func createMySQLTables(db *sql.DB) error {
	return execSchema(db, []string{
		`CREATE TABLE IF NOT EXISTS vault_accounts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account_hash VARCHAR(191) NOT NULL UNIQUE,
			label VARCHAR(255) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS vault_snapshots (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			ts_unix BIGINT NOT NULL,
			nonce VARCHAR(64) NOT NULL,
			payload_hash CHAR(64) NOT NULL,
			raw_json TEXT NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			INDEX idx_snapshots_account_approved (account_id, approved, id),
			FOREIGN KEY (account_id) REFERENCES vault_accounts(id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS vault_counters (
			counter_key VARCHAR(64) PRIMARY KEY,
			counter_value BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL
		) ENGINE=InnoDB`,
	})
}

// Ensure MySQLVaultStore implements VaultStore
var _ VaultStore = (*MySQLVaultStore)(nil)
