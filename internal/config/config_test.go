package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "demo-hash", cfg.Admin.AccountHash)
	assert.True(t, cfg.Admin.AutoCreate)
	assert.True(t, cfg.Vault.AutoApprove)
	assert.Equal(t, "account", cfg.Vault.StateScope)
	assert.Equal(t, "sqlite", cfg.Store.NormalizedType())
	assert.Equal(t, 10*time.Minute, cfg.Cache.PriceTTL)
	assert.Equal(t, "OSRS Vault (prices)", cfg.Upstream.WikiUserAgent)
	assert.Equal(t, "osrs-vault/1.0", cfg.Upstream.DexScreenerUserAgent)
	assert.Equal(t, "solana", cfg.Upstream.MarketChain)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Zero(t, cfg.Upstream.RefreshInterval)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("AUTO_APPROVE_SNAPSHOTS", "false")
	t.Setenv("VAULT_STATE_SCOPE", "global")
	t.Setenv("STORE_TYPE", "PostgreSQL")
	t.Setenv("PRICE_CACHE_TTL", "90s")
	t.Setenv("DEXSCREENER_UA", "vault-bot/2.0")
	t.Setenv("STORE_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Admin.Token)
	assert.False(t, cfg.Vault.AutoApprove)
	assert.Equal(t, "global", cfg.Vault.StateScope)
	assert.Equal(t, "postgres", cfg.Store.NormalizedType())
	assert.Equal(t, 90*time.Second, cfg.Cache.PriceTTL)
	assert.Equal(t, "vault-bot/2.0", cfg.Upstream.DexScreenerUserAgent)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
}

func TestLoadRejectsUnknownScope(t *testing.T) {
	t.Setenv("VAULT_STATE_SCOPE", "everything")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	s := StoreConfig{Host: "db", Name: "vault", User: "app", Password: "p@ss", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/vault?sslmode=require", s.PostgresDSN())
	assert.Equal(t, "app:p@ss@tcp(db:3306)/vault?parseTime=true", s.MySQLDSN())

	s.Port = 6000
	assert.Equal(t, "app:p@ss@tcp(db:6000)/vault?parseTime=true", s.MySQLDSN())
}
