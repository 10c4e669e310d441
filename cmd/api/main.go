package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvfashion/backend/api/routes"
	"github.com/dvfashion/backend/internal/autotransition"
	"github.com/dvfashion/backend/internal/cart"
	"github.com/dvfashion/backend/internal/checkout"
	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/db"
	"github.com/dvfashion/backend/pkg/logger"
	"github.com/dvfashion/backend/pkg/metrics"
	"github.com/dvfashion/backend/pkg/migrate"
	"github.com/dvfashion/backend/pkg/redis"
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

	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)

	stockSvc, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), logg, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartSvc, err := cart.NewService(cartRepo, dbClient, stockSvc, cfg.Reservation.TTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, stockSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	scheduler, err := autotransition.NewScheduler(autotransition.NewRepository(dbClient.DB()), ordersRepo, cfg.AutoTransition, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transition scheduler", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(dbClient, cartRepo, ordersRepo, ordersSvc, scheduler, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
			Registry:    prometheus.DefaultGatherer,
			Inventory:   stockSvc,
			Cart:        cartSvc,
			Checkout:    checkoutSvc,
			Orders:      ordersSvc,
			Transitions: scheduler,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
