package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"osrs-vault-api/internal/model"
)

// dialect captures the SQL differences between the supported databases.
// Queries are written with ? placeholders and rebound when needed.
type dialect struct {
	name string

	// dollarPlaceholders rewrites ? as $1, $2, ... (PostgreSQL).
	dollarPlaceholders bool

	// returningID uses INSERT ... RETURNING id instead of LastInsertId.
	returningID bool

	incrementCounter string
	resetCounter     string
	insertAccount    string
}

// sqlVaultStore implements VaultStore on database/sql.
type sqlVaultStore struct {
	db      *sql.DB
	dialect dialect
}

func (s *sqlVaultStore) q(query string) string {
	if !s.dialect.dollarPlaceholders {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const snapshotColumns = `id, account_id, ts_unix, nonce, payload_hash, raw_json, approved`

// AppendSnapshot stores snap and returns its id.
func (s *sqlVaultStore) AppendSnapshot(ctx context.Context, snap *model.Snapshot) (int64, error) {
	return s.RecordSnapshot(ctx, snap, "", 0)
}

// RecordSnapshot appends snap and increments counterKey by delta in one transaction.
func (s *sqlVaultStore) RecordSnapshot(ctx context.Context, snap *model.Snapshot, counterKey string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.insertSnapshot(ctx, tx, snap)
	if err != nil {
		return 0, err
	}

	if delta > 0 && counterKey != "" {
		if err := s.incrementCounter(ctx, tx, counterKey, delta); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	snap.ID = id
	return id, nil
}

func (s *sqlVaultStore) insertSnapshot(ctx context.Context, tx *sql.Tx, snap *model.Snapshot) (int64, error) {
	var exists int
	err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM vault_accounts WHERE id = ?`), snap.AccountID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: id=%d", ErrAccountNotFound, snap.AccountID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check account: %w", err)
	}

	query := `
		INSERT INTO vault_snapshots (account_id, ts_unix, nonce, payload_hash, raw_json, approved)
		VALUES (?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		snap.AccountID, snap.TimestampUnix, snap.Nonce, snap.PayloadHash, string(snap.RawPayload), snap.Approved,
	}

	if s.dialect.returningID {
		var id int64
		if err := tx.QueryRowContext(ctx, s.q(query+` RETURNING id`), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert snapshot: %w", err)
		}
		return id, nil
	}

	result, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}
	return id, nil
}

// LatestApproved returns the newest approved snapshot, optionally for one account.
func (s *sqlVaultStore) LatestApproved(ctx context.Context, accountID *int64) (*model.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM vault_snapshots WHERE approved = ?`
	args := []interface{}{true}
	if accountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *accountID)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var snap model.Snapshot
	var raw string
	err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(
		&snap.ID,
		&snap.AccountID,
		&snap.TimestampUnix,
		&snap.Nonce,
		&snap.PayloadHash,
		&raw,
		&snap.Approved,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	snap.RawPayload = []byte(raw)
	return &snap, nil
}

// GetCounter returns a counter value, 0 when absent.
func (s *sqlVaultStore) GetCounter(ctx context.Context, key string) (int64, error) {
	return s.getCounter(ctx, s.db, key)
}

func (s *sqlVaultStore) getCounter(ctx context.Context, q queryer, key string) (int64, error) {
	var count int64
	err := q.QueryRowContext(ctx, s.q(`SELECT counter_value FROM vault_counters WHERE counter_key = ?`), key).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	return count, nil
}

// IncrementCounter adds delta to a counter and returns the new value.
func (s *sqlVaultStore) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}
	if delta == 0 {
		return s.GetCounter(ctx, key)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.incrementCounter(ctx, tx, key, delta); err != nil {
		return 0, err
	}
	count, err := s.getCounter(ctx, tx, key)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

func (s *sqlVaultStore) incrementCounter(ctx context.Context, q queryer, key string, delta int64) error {
	_, err := q.ExecContext(ctx, s.q(s.dialect.incrementCounter), key, delta, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return nil
}

// ResetCounter sets a counter to 0.
func (s *sqlVaultStore) ResetCounter(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.q(s.dialect.resetCounter), key, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to reset counter %s: %w", key, err)
	}
	return nil
}

// ResolveAccount finds an account id by hash.
func (s *sqlVaultStore) ResolveAccount(ctx context.Context, accountHash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id FROM vault_accounts WHERE account_hash = ?`), accountHash).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: account_hash=%s", ErrAccountNotFound, accountHash)
		}
		return 0, fmt.Errorf("failed to resolve account: %w", err)
	}
	return id, nil
}

// EnsureAccount creates the account when missing and returns its id.
func (s *sqlVaultStore) EnsureAccount(ctx context.Context, accountHash, label string) (int64, error) {
	_, err := s.db.ExecContext(ctx, s.q(s.dialect.insertAccount), accountHash, label, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to create account: %w", err)
	}
	return s.ResolveAccount(ctx, accountHash)
}

// GetStats returns row counts and the last snapshot time.
func (s *sqlVaultStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["driver"] = s.dialect.name

	var snapshots, approved int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vault_snapshots").Scan(&snapshots); err != nil {
		return nil, err
	}
	stats["total_snapshots"] = snapshots

	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM vault_snapshots WHERE approved = ?"), true).Scan(&approved); err != nil {
		return nil, err
	}
	stats["approved_snapshots"] = approved

	var lastTs sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(ts_unix) FROM vault_snapshots").Scan(&lastTs); err == nil && lastTs.Valid {
		stats["last_snapshot"] = time.Unix(lastTs.Int64, 0).UTC()
	}

	var accounts int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vault_accounts").Scan(&accounts); err == nil {
		stats["accounts"] = accounts
	}

	dbStats := s.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Ping checks the database connection.
func (s *sqlVaultStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *sqlVaultStore) Close() error {
	return s.db.Close()
}

func execSchema(db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
