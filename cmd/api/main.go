package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/novashop/novashop-backend/api/routes"
	cartsvc "github.com/novashop/novashop-backend/internal/cart"
	"github.com/novashop/novashop-backend/internal/inventory"
	ordersvc "github.com/novashop/novashop-backend/internal/orders"
	"github.com/novashop/novashop-backend/internal/payments"
	productsvc "github.com/novashop/novashop-backend/internal/products"
	reviewsvc "github.com/novashop/novashop-backend/internal/reviews"
	"github.com/novashop/novashop-backend/pkg/cache"
	"github.com/novashop/novashop-backend/pkg/config"
	"github.com/novashop/novashop-backend/pkg/db"
	"github.com/novashop/novashop-backend/pkg/logger"
	"github.com/novashop/novashop-backend/pkg/metrics"
	"github.com/novashop/novashop-backend/pkg/migrate"
	"github.com/novashop/novashop-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	productsRepo := productsvc.NewRepository(dbClient.DB())
	productsService, err := productsvc.NewService(
		productsRepo,
		cache.NewRedisStore(redisClient),
		cfg.Catalog.CacheTTL,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	reviewsService, err := reviewsvc.NewService(
		reviewsvc.NewRepository(dbClient.DB()),
		productsRepo,
		dbClient,
		productsService,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	cartService, err := cartsvc.NewService(cartRepo, productsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(
		ordersvc.NewRepository(dbClient.DB()),
		dbClient,
		cartsvc.NewStore(cartRepo),
		productsRepo,
		payments.NewSimulator(cfg.Payment),
		inventory.NewAdjuster(),
		cfg.Checkout,
		cfg.Payment,
		logg,
		ordersvc.WithMetrics(checkoutMetrics),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Registry:    registry,
			HTTPMetrics: httpMetrics,
			Products:    productsService,
			Reviews:     reviewsService,
			Cart:        cartService,
			Orders:      ordersService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
