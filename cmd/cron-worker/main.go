package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvfashion/backend/internal/autotransition"
	"github.com/dvfashion/backend/internal/cart"
	"github.com/dvfashion/backend/internal/cron"
	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/db"
	"github.com/dvfashion/backend/pkg/logger"
	"github.com/dvfashion/backend/pkg/metrics"
	"github.com/dvfashion/backend/pkg/migrate"
	"github.com/dvfashion/backend/pkg/redis"
)

const lockKeyFormat = "dvf:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	stockSvc, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, stockSvc, cfg.Reservation.TTL, logg)
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

	transitionRepo := autotransition.NewRepository(dbClient.DB())
	scheduler, err := autotransition.NewScheduler(transitionRepo, ordersRepo, cfg.AutoTransition, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transition scheduler", err)
		os.Exit(1)
	}
	executor, err := autotransition.NewExecutor(transitionRepo, ordersRepo, ordersSvc, scheduler, cfg.AutoTransition, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transition executor", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewReservationExpiryJob(cron.ReservationExpiryJobParams{
		Logger: logg,
		Cart:   cartSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation expiry job", err)
		os.Exit(1)
	}
	transitionJob, err := cron.NewAutoTransitionJob(cron.AutoTransitionJobParams{
		Logger:   logg,
		Executor: executor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-transition job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(transitionJob, cfg.AutoTransition.ExecutorInterval)
	registry.Register(expiryJob, cfg.Reservation.ScanInterval)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
