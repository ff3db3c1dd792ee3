package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"correction_pricing/internal/auth"
	"correction_pricing/internal/config"
	"correction_pricing/internal/middleware"
	"correction_pricing/internal/models"
	"correction_pricing/internal/pricing"
	"correction_pricing/internal/ratelimit"
	"correction_pricing/internal/storage"
	"correction_pricing/internal/tariffcache"
)

// TariffStore is the catalog persistence used by the admin endpoints.
// storage.TariffRepository satisfies it.
type TariffStore interface {
	List(ctx context.Context) ([]models.TariffRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.TariffRecord, error)
	Create(ctx context.Context, tariff *models.TariffRecord) error
	Update(ctx context.Context, tariff *models.TariffRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Cache       *tariffcache.Cache
	Invalidator *tariffcache.Invalidator

	// Tariffs and AdminStore are nil when the catalog is not database-backed;
	// the admin routes are then not registered.
	Tariffs    TariffStore
	AdminStore auth.AdminStore

	// LoginLimiter caps admin login attempts. Optional.
	LoginLimiter ratelimit.Limiter

	// Quotes memoizes breakdowns per catalog version and page count. Optional.
	Quotes    *storage.LRUCache[string, pricing.Breakdown]
	PackSizes []int

	HealthChecks map[string]HealthChecker
}

// NewRouter registers every route on a new mux.
func NewRouter(cfg *config.Config, deps *Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)
	return mux
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	mux.HandleFunc("GET /health", deps.handleHealth)

	// Public pricing surfaces
	pricingHandler := NewPricingHandler(deps)
	mux.HandleFunc("GET /api/tariffs", pricingHandler.Tariffs)
	mux.HandleFunc("GET /api/pricing/rules", pricingHandler.Rules)
	mux.HandleFunc("GET /api/pricing/quote", pricingHandler.Quote)
	mux.HandleFunc("GET /api/pricing/packs", pricingHandler.Packs)
	mux.HandleFunc("GET /api/pricing/stream", pricingHandler.Stream)

	adminOnly := middleware.AdminJWTMiddleware(cfg, auth.RoleAdmin)
	viewer := middleware.AdminJWTMiddleware(cfg, auth.RoleViewer)

	mux.Handle("POST /admin/pricing/refresh", adminOnly(http.HandlerFunc(pricingHandler.Refresh)))

	if deps.AdminStore != nil {
		authHandler := NewAdminAuthHandler(deps.AdminStore, cfg, deps.LoginLimiter)
		mux.HandleFunc("POST /admin/auth/login", authHandler.Login)
	}

	if deps.Tariffs != nil {
		tariffs := NewAdminTariffsHandler(deps.Tariffs, deps.Invalidator)
		mux.Handle("GET /admin/tariffs", viewer(http.HandlerFunc(tariffs.List)))
		mux.Handle("POST /admin/tariffs", adminOnly(http.HandlerFunc(tariffs.Create)))
		mux.Handle("GET /admin/tariffs/{id}", viewer(http.HandlerFunc(tariffs.Get)))
		mux.Handle("PUT /admin/tariffs/{id}", adminOnly(http.HandlerFunc(tariffs.Update)))
		mux.Handle("DELETE /admin/tariffs/{id}", adminOnly(http.HandlerFunc(tariffs.Delete)))
	}
}

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true

	for name, checker := range d.HealthChecks {
		if err := checker.Health(r.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	snap := d.Cache.Snapshot()
	switch {
	case !snap.Loaded:
		status["catalog"] = "not loaded"
	case d.Cache.IsStale(d.Cache.StaleTime()):
		status["catalog"] = "stale"
	default:
		status["catalog"] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
