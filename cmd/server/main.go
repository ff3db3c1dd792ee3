package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"correction_pricing/internal/catalog"
	"correction_pricing/internal/config"
	"correction_pricing/internal/httpapi"
	"correction_pricing/internal/logging"
	"correction_pricing/internal/metrics"
	"correction_pricing/internal/pricing"
	"correction_pricing/internal/ratelimit"
	"correction_pricing/internal/storage"
	"correction_pricing/internal/tariffcache"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Initialize(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		logging.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Metrics pipeline
	provider, err := metrics.NewMeterProvider(ctx, metrics.ExporterConfig{
		Enabled:     cfg.Metrics.Enabled,
		Endpoint:    cfg.Metrics.Endpoint,
		Insecure:    cfg.Metrics.Insecure,
		ServiceName: cfg.Metrics.ServiceName,
	})
	if err != nil {
		logging.Fatalf("Failed to create meter provider: %v", err)
	}
	recorder, err := metrics.NewOTelMetrics(provider)
	if err != nil {
		logging.Fatalf("Failed to create metrics: %v", err)
	}

	deps := &httpapi.Dependencies{
		PackSizes:    cfg.Pricing.PackSizes,
		HealthChecks: map[string]httpapi.HealthChecker{},
	}

	// Catalog source
	var (
		source     catalog.Source
		fileSource *catalog.FileSource
		db         *storage.DB
	)
	switch cfg.Pricing.CatalogSource {
	case config.CatalogSourceDB:
		db, err = storage.NewDB(storage.DBConfig{
			DSN:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			QueryTimeout:    cfg.Database.QueryTimeout,
		})
		if err != nil {
			logging.Fatalf("Failed to connect to database: %v", err)
		}
		tariffs := db.NewTariffRepository()
		source = catalog.NewDBSource(tariffs)
		deps.Tariffs = tariffs
		deps.AdminStore = httpapi.NewAdminStoreAdapter(db.NewAdminUserRepository())
		deps.HealthChecks["database"] = db
	case config.CatalogSourceFile:
		fileSource = catalog.NewFileSource(cfg.Pricing.CatalogFile)
		source = fileSource
	case config.CatalogSourceHTTP:
		source = catalog.NewHTTPSource(cfg.Pricing.CatalogURL, cfg.Pricing.FetchAttemptTimeout)
	}
	retrying := catalog.NewRetrying(source, cfg.Pricing.FetchAttempts, cfg.Pricing.RetryInitialInterval).
		WithAttemptTimeout(cfg.Pricing.FetchAttemptTimeout)
	fetchTimeout := cfg.Pricing.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = retrying.Budget()
	}

	cache := tariffcache.New(retrying, tariffcache.Config{
		StaleTime:    cfg.Pricing.StaleTime,
		FetchTimeout: fetchTimeout,
		Metrics:      recorder,
	})
	deps.Cache = cache

	// Cross-instance invalidation
	var (
		broadcaster tariffcache.Broadcaster
		listener    *tariffcache.Listener
		redisClient *storage.RedisClient
	)
	if cfg.Redis.Enabled {
		redisCfg := storage.DefaultRedisConfig()
		redisCfg.Address = cfg.Redis.Address
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisClient, err = storage.NewRedisClient(redisCfg)
		if err != nil {
			// Peers then converge on the stale window only
			logging.Warningf("Redis unavailable, cross-instance invalidation disabled: %v", err)
		} else {
			deps.HealthChecks["redis"] = redisClient
			deps.LoginLimiter = ratelimit.NewRateLimiter(redisClient.Client())
			rb := tariffcache.NewRedisBroadcaster(redisClient.Client(), cfg.Invalidation.Channel, cfg.Invalidation.InstanceID)
			broadcaster = rb
			listener, err = rb.Subscribe(ctx)
			if err != nil {
				logging.Warningf("Failed to subscribe to %s: %v", cfg.Invalidation.Channel, err)
			}
		}
	}

	invalidator := tariffcache.NewInvalidator(cache, broadcaster)
	deps.Invalidator = invalidator

	if listener != nil {
		go func() {
			if err := listener.Run(ctx, invalidator.HandleRemote); err != nil {
				logging.Errorf("Invalidation listener stopped: %v", err)
			}
		}()
	}

	if fileSource != nil {
		go func() {
			err := fileSource.Watch(ctx, func() {
				_ = invalidator.InvalidateFrom(ctx, tariffcache.OriginFile)
			})
			if err != nil {
				logging.Errorf("Catalog file watch stopped: %v", err)
			}
		}()
	}

	if cfg.Pricing.QuoteCacheSize > 0 {
		deps.Quotes = storage.NewLRUCache[string, pricing.Breakdown](cfg.Pricing.QuoteCacheSize, cfg.Pricing.QuoteCacheTTL)
		go sweepQuotes(ctx, deps.Quotes, cfg.Pricing.QuoteCacheTTL)
	}

	// Warm the cache; a failure here is not fatal, pricing falls back to defaults.
	if err := invalidator.Prefetch(ctx); err != nil {
		logging.Warningf("Initial catalog load failed: %v", err)
	}

	mux := logging.RequestLogger(httpapi.NewRouter(cfg, deps))

	// Create HTTP server. No write timeout: pricing streams are long-lived.
	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logging.Infof("Correction pricing listening on %s (catalog source: %s)", addr, cfg.Pricing.CatalogSource)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server...")

	// Ends streams, the listener and the file watch
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warningf("Server forced to shutdown: %v", err)
	}

	if listener != nil {
		_ = listener.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logging.Warningf("Failed to flush metrics: %v", err)
	}

	logging.Infof("Server exited")
}

// sweepQuotes drops expired quote entries
func sweepQuotes(ctx context.Context, quotes *storage.LRUCache[string, pricing.Breakdown], ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := quotes.CleanupExpired(); n > 0 {
				logging.Debugf("Evicted %d expired quotes", n)
			}
		}
	}
}
