package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cloudcore-storefront/api/controllers"
	"github.com/angelmondragon/cloudcore-storefront/api/routes"
	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/internal/catalog"
	"github.com/angelmondragon/cloudcore-storefront/internal/orders"
	"github.com/angelmondragon/cloudcore-storefront/internal/pricing"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	"github.com/angelmondragon/cloudcore-storefront/pkg/config"
	"github.com/angelmondragon/cloudcore-storefront/pkg/db"
	"github.com/angelmondragon/cloudcore-storefront/pkg/instance"
	"github.com/angelmondragon/cloudcore-storefront/pkg/kv"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
	"github.com/angelmondragon/cloudcore-storefront/pkg/metrics"
	"github.com/angelmondragon/cloudcore-storefront/pkg/migrate"
	"github.com/angelmondragon/cloudcore-storefront/pkg/redis"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	closeAll := func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "error closing resources", errs)
		}
	}
	fail := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		closeAll()
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			fail("failed to bootstrap redis", err)
		}
		closers = append(closers, redisClient.Close)
	}

	var (
		store  kv.Store
		checks []controllers.ReadinessCheck
	)
	driver := strings.ToLower(cfg.Storage.Driver)
	switch driver {
	case config.StorageDriverRedis:
		store = kv.NewRedis(redisClient)
	case config.StorageDriverSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			fail("failed to bootstrap database", err)
		}
		closers = append(closers, dbClient.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			fail("failed to run dev migrations", err)
		}
		sqlStore := kv.NewSQL(dbClient)
		go purgeExpired(ctx, logg, sqlStore)
		store = sqlStore
	default:
		memStore := kv.NewMemory()
		go purgeExpired(ctx, logg, memStore)
		store = memStore
	}
	checks = append(checks, controllers.ReadinessCheck{Name: "cart_store", Pinger: store})
	if redisClient != nil && driver != config.StorageDriverRedis {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.New(registry)

	commerceClient := commerce.NewClient(
		commerce.WithBaseURL(cfg.Commerce.BaseURL),
		commerce.WithAssetHost(cfg.Commerce.AssetHost),
		commerce.WithTimeout(cfg.Commerce.Timeout),
	)

	catalogService, err := catalog.NewService(commerceClient, logg, storefrontMetrics)
	if err != nil {
		fail("failed to create catalog service", err)
	}
	go catalogService.Run(ctx, cfg.Catalog.RefreshInterval)

	sessions, err := cart.NewSessions(store, logg, cart.Options{
		Key:     cfg.Storage.CartKey,
		TTL:     cfg.Storage.CartTTL,
		Metrics: storefrontMetrics,
	})
	if err != nil {
		fail("failed to create cart sessions", err)
	}

	tiers, err := pricing.TiersFromConfig(cfg.Pricing)
	if err != nil {
		fail("invalid delivery tiers", err)
	}
	engine := pricing.NewEngine(tiers, commerceClient)

	var guard orders.Guard = orders.NewLocalGuard()
	if redisClient != nil {
		guard = orders.NewRedisGuard(redisClient, cfg.Storage.LockTTL, logg)
	}

	orderService, err := orders.NewService(orders.Deps{
		Sessions: sessions,
		Catalog:  catalogService,
		Pricing:  engine,
		Gateway:  commerceClient,
		Guard:    guard,
		Logger:   logg,
		Metrics:  storefrontMetrics,
	})
	if err != nil {
		fail("failed to create order service", err)
	}

	// a nil *redis.Client must not reach the interface
	var idempotency redis.IdempotencyStore
	if redisClient != nil {
		idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"storage":  driver,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting storefront api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Catalog:     catalogService,
			Sessions:    sessions,
			Pricing:     engine,
			Orders:      orderService,
			Idempotency: idempotency,
			Readiness:   checks,
			Gatherer:    registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down storefront api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}

	closeAll()
}

type expiringStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

func purgeExpired(ctx context.Context, logg *logger.Logger, store expiringStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "failed to purge expired cart snapshots", err)
				continue
			}
			if removed > 0 {
				logg.Info(logg.WithField(ctx, "removed", removed), "purged expired cart snapshots")
			}
		}
	}
}
