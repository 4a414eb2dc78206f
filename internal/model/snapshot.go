package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"osrs-vault-api/pkg/uid"
)

// Snapshot is an immutable record of inventory counts submitted by the admin.
type Snapshot struct {
	ID            int64  `json:"id"`
	AccountID     int64  `json:"account_id"`
	TimestampUnix int64  `json:"ts_unix"`
	Nonce         string `json:"nonce"`
	PayloadHash   string `json:"payload_hash"`
	RawPayload    []byte `json:"raw_json"`
	Approved      bool   `json:"approved"`
}

// NewSnapshot builds an unsaved snapshot for the given counts. The payload is
// the normalized state stamped with now, and PayloadHash is its SHA-256.
func NewSnapshot(accountID int64, counts InventoryCounts, approved bool, now time.Time) (*Snapshot, error) {
	updatedAt := now.UTC()
	state := VaultState{
		Items:     counts.Normalized(),
		UpdatedAt: &updatedAt,
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot payload: %w", err)
	}
	sum := sha256.Sum256(payload)

	return &Snapshot{
		AccountID:     accountID,
		TimestampUnix: now.Unix(),
		Nonce:         uid.New(),
		PayloadHash:   hex.EncodeToString(sum[:]),
		RawPayload:    payload,
		Approved:      approved,
	}, nil
}

// State decodes the snapshot payload into a normalized VaultState. A payload
// without updatedAt falls back to the snapshot timestamp.
func (s *Snapshot) State() (VaultState, error) {
	var state VaultState
	if err := json.Unmarshal(s.RawPayload, &state); err != nil {
		return DefaultVaultState(), fmt.Errorf("failed to decode snapshot %d: %w", s.ID, err)
	}
	state.Items = state.Items.Normalized()
	if state.UpdatedAt == nil && s.TimestampUnix > 0 {
		ts := time.Unix(s.TimestampUnix, 0).UTC()
		state.UpdatedAt = &ts
	}
	return state, nil
}

// Account owns snapshots. AccountHash is the external identifier.
type Account struct {
	ID          int64  `json:"id"`
	AccountHash string `json:"account_hash"`
	Label       string `json:"label"`
}
