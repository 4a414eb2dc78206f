package router

import (
	"net/http"

	"osrs-vault-api/internal/handler"
	"osrs-vault-api/internal/middleware"
	"osrs-vault-api/pkg/apierror"
	"osrs-vault-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	VaultHandler   *handler.VaultHandler
	PriceHandler   *handler.PriceHandler
	MetricsHandler *handler.MetricsHandler
	AdminHandler   *handler.AdminHandler
	AdminGuard     func(http.Handler) http.Handler
	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Token"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound(""))
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
			r.Get("/status", cfg.Handler.Status)
		}

		// Writes are authorized by VaultService.
		if cfg.VaultHandler != nil {
			r.Get("/state", cfg.VaultHandler.GetState)
			r.Post("/state", cfg.VaultHandler.SetState)
			r.Post("/metrics/reset", cfg.VaultHandler.ResetCounter)
		}

		if cfg.PriceHandler != nil {
			r.Get("/prices", cfg.PriceHandler.GetPrices)
		}

		if cfg.MetricsHandler != nil {
			r.Get("/metrics", cfg.MetricsHandler.GetMetrics)
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				if cfg.AdminGuard != nil {
					r.Use(cfg.AdminGuard)
				}
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/cache/clear", cfg.AdminHandler.ClearCache)
			})
		}
	})

	return r
}
