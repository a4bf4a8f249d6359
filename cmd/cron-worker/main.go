package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agromarket/agromarket-backend/internal/cron"
	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/payments"
	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/internal/settings"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
	"github.com/agromarket/agromarket-backend/pkg/migrate"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
	"github.com/agromarket/agromarket-backend/pkg/paystack"
	"github.com/agromarket/agromarket-backend/pkg/redis"
)

// metricsAddrEnv names the listen address for cron job metrics. Unset disables the endpoint.
const metricsAddrEnv = "AGRO_CRON_METRICS_ADDR"

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
		Level:       cfg.App.LogLevel,
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

	registerer := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(registerer)
	paymentMetrics := metrics.NewPaymentMetrics(registerer)

	paymentsSvc, err := newPaymentsService(cfg, logg, dbClient, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:     logg,
		Payments:   paymentsSvc,
		StaleAfter: cfg.Cron.ReconcileStaleAfter,
		BatchSize:  cfg.Cron.ReconcileBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconcile job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Outbox:       outbox.NewRepository(dbClient.DB()),
		DeadLetters:  outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Cron.OutboxRetention,
		DLQRetention: cfg.Cron.DLQRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	jobs, err := cron.NewRegistry(reconcileJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Locks:    cron.RedisLockFactory(redisClient, cfg.Cron.LockTTL),
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if addr := os.Getenv(metricsAddrEnv); addr != "" {
		metricsServer := &http.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "cron metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newPaymentsService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, paymentMetrics *metrics.PaymentMetrics) (payments.Service, error) {
	gdb := dbClient.DB()
	paymentRepo := payments.NewRepository(gdb)
	walletRepo := wallets.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	settingsSvc, err := settings.NewService(settings.NewRepository(gdb), cfg.Paystack.SecretKey, cfg.Paystack.PublicKey)
	if err != nil {
		return nil, err
	}
	gateway, err := paystack.NewClient(cfg.Paystack, settingsSvc, logg)
	if err != nil {
		return nil, err
	}
	settler, err := payments.NewSettler(payments.SettlerParams{
		DB:       dbClient,
		Payments: paymentRepo,
		Wallets:  walletRepo,
		Orders:   orderRepo,
		Outbox:   outboxSvc,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	return payments.NewService(payments.ServiceParams{
		DB:       dbClient,
		Payments: paymentRepo,
		Wallets:  walletRepo,
		Orders:   orderRepo,
		Profiles: profiles.NewRepository(gdb),
		Outbox:   outboxSvc,
		Gateway:  gateway,
		Settler:  settler,
		Logger:   logg,
	})
}
