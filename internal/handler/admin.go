package handler

import (
	"log"
	"net/http"
	"runtime"
	"time"

	"osrs-vault-api/internal/cache"
	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/repository"
	"osrs-vault-api/pkg/apierror"
	"osrs-vault-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store     repository.VaultStore
	cache     cache.Cache
	storeType string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store repository.VaultStore, c cache.Cache, storeType, cacheType string) *AdminHandler {
	return &AdminHandler{
		store:     store,
		cache:     c,
		storeType: storeType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().UTC().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	storeStats, err := h.store.GetStats(ctx)
	if err == nil {
		storeStats["status"] = "connected"
		if count, err := h.store.GetCounter(ctx, model.ItemsAcquiredKey); err == nil {
			storeStats[model.ItemsAcquiredKey] = count
		}
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ClearCache handles POST /api/admin/cache/clear
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		log.Printf("[AdminHandler] Failed to clear cache: %v", err)
		response.Error(w, apierror.InternalError("Failed to clear cache"))
		return
	}
	log.Printf("[AdminHandler] Price cache cleared")
	response.OK(w, map[string]interface{}{"ok": true})
}
