package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"osrs-vault-api/internal/cache"
	"osrs-vault-api/internal/config"
	"osrs-vault-api/internal/handler"
	"osrs-vault-api/internal/middleware"
	"osrs-vault-api/internal/repository"
	"osrs-vault-api/internal/router"
	"osrs-vault-api/internal/service"
	"osrs-vault-api/internal/upstream"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting OSRS Vault API...")

	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	storeType := cfg.Store.NormalizedType()
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", storeType, err)
	}
	defer store.Close()
	log.Printf("%s vault store initialized", storeType)

	if cfg.Admin.AutoCreate {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
		id, err := store.EnsureAccount(ctx, cfg.Admin.AccountHash, cfg.Admin.AccountLabel)
		cancel()
		if err != nil {
			log.Fatalf("Failed to ensure admin account: %v", err)
		}
		log.Printf("Admin account %q ready (id=%d)", cfg.Admin.AccountHash, id)
	}

	// Price cache: Redis when configured and reachable, otherwise in-process
	cacheType := "memory"
	var priceCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisKeyPrefix,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
		} else {
			priceCache = redisCache
			cacheType = "redis"
			log.Println("Redis price cache initialized")
		}
	}
	if priceCache == nil {
		priceCache = cache.NewMemoryCache()
	}
	defer priceCache.Close()

	if cfg.Admin.Token == "" {
		log.Println("Warning: ADMIN_TOKEN is not set, admin writes are disabled")
	}

	// Upstreams
	wiki := upstream.NewWikiClient(cfg.Upstream.WikiBaseURL, cfg.Upstream.WikiUserAgent, cfg.Upstream.Timeout)
	prices := upstream.NewCachedPriceFeed(wiki, priceCache, cfg.Cache.PriceTTL)
	market := upstream.NewDexScreenerClient(upstream.DexScreenerConfig{
		BaseURL:   cfg.Upstream.DexScreenerBaseURL,
		Token:     cfg.Upstream.TokenCA,
		Chain:     cfg.Upstream.MarketChain,
		UserAgent: cfg.Upstream.DexScreenerUserAgent,
		Timeout:   cfg.Upstream.Timeout,
	})
	if !market.Configured() {
		log.Println("Market token not configured, metrics will report configured=false")
	}

	// Services
	auth := service.NewAuthorizer(cfg.Admin.Token)
	vaultService := service.NewVaultService(store, auth, service.VaultConfig{
		AccountHash: cfg.Admin.AccountHash,
		AutoApprove: cfg.Vault.AutoApprove,
		Scope:       cfg.Vault.StateScope,
	})
	priceService := service.NewPriceService(vaultService, prices)
	metricsService := service.NewMetricsService(market, store)

	var refresher *service.PriceRefresher
	if cfg.Upstream.RefreshInterval > 0 {
		refresher = service.NewPriceRefresher(prices, cfg.Upstream.RefreshInterval)
		refresher.Start()
	}

	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, store),
		VaultHandler:   handler.NewVaultHandler(vaultService),
		PriceHandler:   handler.NewPriceHandler(priceService),
		MetricsHandler: handler.NewMetricsHandler(metricsService),
		AdminHandler:   handler.NewAdminHandler(store, priceCache, storeType, cacheType),
		AdminGuard:     middleware.RequireAdmin(auth),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if refresher != nil {
		refresher.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// openStore connects the configured vault store.
func openStore(cfg *config.Config) (repository.VaultStore, error) {
	switch cfg.Store.NormalizedType() {
	case "mongodb":
		return repository.NewMongoDBVaultStore(cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	case "postgres":
		return repository.NewPostgresVaultStore(cfg.Store.PostgresDSN())
	case "mysql":
		return repository.NewMySQLVaultStore(cfg.Store.MySQLDSN())
	default:
		return repository.NewSQLiteVaultStore(cfg.Store.Path)
	}
}
