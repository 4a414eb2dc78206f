package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Admin    AdminConfig
	Vault    VaultConfig
	Store    StoreConfig
	Cache    CacheConfig
	Upstream UpstreamConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"osrs-vault-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// AdminConfig holds the shared admin secret and the account admin writes go to.
type AdminConfig struct {
	Token        string `envconfig:"ADMIN_TOKEN" default:""`
	AccountHash  string `envconfig:"ADMIN_ACCOUNT_HASH" default:"demo-hash"`
	AccountLabel string `envconfig:"ADMIN_ACCOUNT_LABEL" default:"admin"`
	AutoCreate   bool   `envconfig:"ADMIN_ACCOUNT_AUTO_CREATE" default:"true"`
}

// VaultConfig holds snapshot settings.
type VaultConfig struct {
	AutoApprove bool   `envconfig:"AUTO_APPROVE_SNAPSHOTS" default:"true"`
	StateScope  string `envconfig:"VAULT_STATE_SCOPE" default:"account"` // account or global
}

// StoreConfig holds vault store settings.
type StoreConfig struct {
	Type    string        `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql, mongodb
	Path    string        `envconfig:"STORE_PATH" default:"./data/vault.db"`
	Timeout time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT" default:"0"`
	Name     string `envconfig:"STORE_NAME" default:"osrs_vault"`
	User     string `envconfig:"STORE_USER" default:""`
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"osrs_vault"`
}

// CacheConfig holds price cache settings.
type CacheConfig struct {
	Type     string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	PriceTTL time.Duration `envconfig:"PRICE_CACHE_TTL" default:"10m"`

	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"osrs-vault:cache"`
}

// UpstreamConfig holds settings for the price and market APIs.
type UpstreamConfig struct {
	WikiBaseURL          string        `envconfig:"OSRS_WIKI_BASE_URL" default:"https://prices.runescape.wiki/api/v1/osrs"`
	WikiUserAgent        string        `envconfig:"OSRS_WIKI_UA" default:"OSRS Vault (prices)"`
	DexScreenerBaseURL   string        `envconfig:"DEXSCREENER_BASE_URL" default:"https://api.dexscreener.com"`
	DexScreenerUserAgent string        `envconfig:"DEXSCREENER_UA" default:"osrs-vault/1.0"`
	TokenCA              string        `envconfig:"TOKEN_CA" default:""`
	MarketChain          string        `envconfig:"MARKET_CHAIN" default:"solana"`
	Timeout              time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	RefreshInterval      time.Duration `envconfig:"PRICE_REFRESH_INTERVAL" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	user := s.User
	if user == "" {
		user = "postgres"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, port),
		Path:     "/" + s.Name,
		RawQuery: "sslmode=" + url.QueryEscape(s.SSLMode),
	}
	return u.String()
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	user := s.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		user, s.Password, s.Host, port, s.Name)
}

// NormalizedType returns the store type with aliases resolved.
func (s *StoreConfig) NormalizedType() string {
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "postgres", "postgresql":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "mongodb", "mongo":
		return "mongodb"
	default:
		return "sqlite"
	}
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Vault.StateScope {
	case "account", "global":
	default:
		return nil, fmt.Errorf("invalid VAULT_STATE_SCOPE %q: want account or global", cfg.Vault.StateScope)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
