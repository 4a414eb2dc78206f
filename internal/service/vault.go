package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/repository"
)

// Scope values for VaultConfig.Scope.
const (
	ScopeAccount = "account"
	ScopeGlobal  = "global"
)

// VaultConfig configures a VaultService.
type VaultConfig struct {
	// AccountHash identifies the account that owns admin snapshots.
	AccountHash string

	// AutoApprove marks new snapshots approved on write.
	AutoApprove bool

	// Scope selects which snapshot is "current": the admin account's
	// latest approved (account) or the latest approved overall (global).
	Scope string
}

// VaultService reads and writes the vault state and its acquisition counter.
type VaultService struct {
	store  repository.VaultStore
	auth   *Authorizer
	config VaultConfig
	now    func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewVaultService creates a new vault service.
func NewVaultService(store repository.VaultStore, auth *Authorizer, config VaultConfig) *VaultService {
	if config.AccountHash == "" {
		config.AccountHash = "demo-hash"
	}
	if config.Scope != ScopeGlobal {
		config.Scope = ScopeAccount
	}
	return &VaultService{
		store:  store,
		auth:   auth,
		config: config,
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// GetState returns the current vault state. It never fails: any store
// error yields the all-zero default.
func (s *VaultService) GetState(ctx context.Context) model.VaultState {
	var accountID *int64
	if s.config.Scope == ScopeAccount {
		id, err := s.store.ResolveAccount(ctx, s.config.AccountHash)
		if err != nil {
			if !errors.Is(err, repository.ErrAccountNotFound) {
				log.Printf("[VaultService] Failed to resolve account: %v", err)
			}
			return model.DefaultVaultState()
		}
		accountID = &id
	}

	state, err := s.latestState(ctx, accountID)
	if err != nil {
		log.Printf("[VaultService] Failed to read state: %v", err)
		return model.DefaultVaultState()
	}
	return state
}

func (s *VaultService) latestState(ctx context.Context, accountID *int64) (model.VaultState, error) {
	snap, err := s.store.LatestApproved(ctx, accountID)
	if err != nil {
		return model.VaultState{}, err
	}
	if snap == nil {
		return model.DefaultVaultState(), nil
	}
	return snap.State()
}

// Authorize checks token against the configured admin token.
func (s *VaultService) Authorize(token string) error {
	return s.auth.Authorize(token)
}

// SetStateResult is the outcome of a successful write.
type SetStateResult struct {
	SnapshotID    int64
	TotalIncrease int64
}

// SetState authorizes token, parses body into counts and appends a snapshot
// for the admin account. Positive per-item increases over the previous
// approved state are added to the items-acquired counter in the same
// transaction. Decreases never decrement it.
func (s *VaultService) SetState(ctx context.Context, token string, body []byte) (*SetStateResult, error) {
	if err := s.auth.Authorize(token); err != nil {
		return nil, err
	}

	counts, err := model.ParseCounts(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	accountID, err := s.store.ResolveAccount(ctx, s.config.AccountHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	// The read-compare-write below must not interleave with another write
	// for the same account.
	unlock := s.lock(accountID)
	defer unlock()

	// Once the previous state is read the write runs to completion even if
	// the caller goes away.
	writeCtx := context.WithoutCancel(ctx)

	prev, err := s.latestState(writeCtx, &accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: read previous state: %v", ErrWrite, err)
	}

	snap, err := model.NewSnapshot(accountID, counts, s.config.AutoApprove, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	// Unapproved snapshots are not current state, so they cannot advance the counter.
	var increase int64
	if snap.Approved {
		increase = counts.IncreaseOver(prev.Items)
	}

	id, err := s.store.RecordSnapshot(writeCtx, snap, model.ItemsAcquiredKey, increase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if increase > 0 {
		log.Printf("[VaultService] Snapshot %d stored, items acquired +%d", id, increase)
	} else {
		log.Printf("[VaultService] Snapshot %d stored", id)
	}
	return &SetStateResult{SnapshotID: id, TotalIncrease: increase}, nil
}

// ResetCounter sets the items-acquired counter to zero.
func (s *VaultService) ResetCounter(ctx context.Context, token string) error {
	if err := s.auth.Authorize(token); err != nil {
		return err
	}
	if err := s.store.ResetCounter(context.WithoutCancel(ctx), model.ItemsAcquiredKey); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	log.Printf("[VaultService] Items acquired counter reset")
	return nil
}

// ItemsAcquired returns the items-acquired counter.
func (s *VaultService) ItemsAcquired(ctx context.Context) (int64, error) {
	return s.store.GetCounter(ctx, model.ItemsAcquiredKey)
}

func (s *VaultService) lock(accountID int64) func() {
	s.mu.Lock()
	m, ok := s.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[accountID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
