package repository

import (
	"context"

	"osrs-vault-api/internal/model"
)

// SnapshotRepository is the append-only snapshot log.
type SnapshotRepository interface {
	// AppendSnapshot stores snap and returns its store-assigned id.
	// Fails with ErrAccountNotFound if snap.AccountID does not exist.
	AppendSnapshot(ctx context.Context, snap *model.Snapshot) (int64, error)

	// LatestApproved returns the most recently inserted approved snapshot.
	// A nil accountID searches across all accounts. Returns nil, nil if none exists.
	LatestApproved(ctx context.Context, accountID *int64) (*model.Snapshot, error)
}

// CounterRepository stores cumulative counters.
type CounterRepository interface {
	// GetCounter returns the counter value, 0 if the key is absent.
	GetCounter(ctx context.Context, key string) (int64, error)

	// IncrementCounter adds delta (>= 0) and returns the new value.
	// A zero delta does not write.
	IncrementCounter(ctx context.Context, key string, delta int64) (int64, error)

	// ResetCounter sets the counter to 0, creating it if needed.
	ResetCounter(ctx context.Context, key string) error
}

// AccountRepository resolves snapshot owners.
type AccountRepository interface {
	// ResolveAccount finds an account id by hash. Returns ErrAccountNotFound if absent.
	ResolveAccount(ctx context.Context, accountHash string) (int64, error)

	// EnsureAccount creates the account if it does not exist and returns its id.
	EnsureAccount(ctx context.Context, accountHash, label string) (int64, error)
}

// VaultStore is the complete persistence layer of the vault.
type VaultStore interface {
	SnapshotRepository
	CounterRepository
	AccountRepository

	// RecordSnapshot appends snap and, when delta > 0, increments counterKey by
	// delta. Both happen in one transaction: either both persist or neither.
	RecordSnapshot(ctx context.Context, snap *model.Snapshot, counterKey string, delta int64) (int64, error)

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
