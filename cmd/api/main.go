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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agromarket/agromarket-backend/api/routes"
	"github.com/agromarket/agromarket-backend/internal/admin"
	"github.com/agromarket/agromarket-backend/internal/auth"
	"github.com/agromarket/agromarket-backend/internal/categories"
	"github.com/agromarket/agromarket-backend/internal/delivery"
	"github.com/agromarket/agromarket-backend/internal/negotiations"
	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/payments"
	product "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/internal/settings"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	paystackwebhook "github.com/agromarket/agromarket-backend/internal/webhooks/paystack"
	"github.com/agromarket/agromarket-backend/pkg/auth/session"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
	"github.com/agromarket/agromarket-backend/pkg/migrate"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
	"github.com/agromarket/agromarket-backend/pkg/paystack"
	"github.com/agromarket/agromarket-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal(logg, "failed to create session manager", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	gdb := dbClient.DB()
	profileRepo := profiles.NewRepository(gdb)
	walletRepo := wallets.NewRepository(gdb)
	categoryRepo := categories.NewRepository(gdb)
	productRepo := product.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	negotiationRepo := negotiations.NewRepository(gdb)
	paymentRepo := payments.NewRepository(gdb)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	settingsSvc, err := settings.NewService(settings.NewRepository(gdb), cfg.Paystack.SecretKey, cfg.Paystack.PublicKey)
	if err != nil {
		fatal(logg, "failed to create settings service", err)
	}
	gateway, err := paystack.NewClient(cfg.Paystack, settingsSvc, logg)
	if err != nil {
		fatal(logg, "failed to create paystack client", err)
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
		fatal(logg, "failed to create payment settler", err)
	}
	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		DB:       dbClient,
		Payments: paymentRepo,
		Wallets:  walletRepo,
		Orders:   orderRepo,
		Profiles: profileRepo,
		Outbox:   outboxSvc,
		Gateway:  gateway,
		Settler:  settler,
		Logger:   logg,
	})
	if err != nil {
		fatal(logg, "failed to create payments service", err)
	}

	guard, err := paystackwebhook.NewEventGuard(redisClient, cfg.Cron.WebhookIdempotencyTTL)
	if err != nil {
		fatal(logg, "failed to create webhook guard", err)
	}
	webhookSvc, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Keys:    settingsSvc,
		Settler: settler,
		Guard:   guard,
		Metrics: paymentMetrics,
		Logger:  logg,
	})
	if err != nil {
		fatal(logg, "failed to create webhook service", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		DB:               dbClient,
		Profiles:         profileRepo,
		SessionManager:   sessionManager,
		JWTConfig:        cfg.JWT,
		PasswordConfig:   cfg.Password,
		AdminSetupSecret: cfg.Admin.SetupSecret,
	})
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}
	profilesSvc, err := profiles.NewService(profileRepo, walletRepo)
	if err != nil {
		fatal(logg, "failed to create profiles service", err)
	}
	categoriesSvc, err := categories.NewService(categoryRepo)
	if err != nil {
		fatal(logg, "failed to create categories service", err)
	}
	productsSvc, err := product.NewService(productRepo, categoryRepo)
	if err != nil {
		fatal(logg, "failed to create products service", err)
	}
	negotiationsSvc, err := negotiations.NewService(negotiations.ServiceParams{
		Repo:     negotiationRepo,
		Products: productRepo,
		Orders:   orderRepo,
		DB:       dbClient,
		Outbox:   outboxSvc,
	})
	if err != nil {
		fatal(logg, "failed to create negotiations service", err)
	}
	ordersSvc, err := orders.NewService(orderRepo, productRepo, dbClient, outboxSvc)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	deliverySvc, err := delivery.NewService(delivery.ServiceParams{
		Orders:            orderRepo,
		DB:                dbClient,
		Outbox:            outboxSvc,
		CommissionPercent: cfg.Delivery.CommissionPercent,
	})
	if err != nil {
		fatal(logg, "failed to create delivery service", err)
	}
	walletsSvc, err := wallets.NewService(walletRepo)
	if err != nil {
		fatal(logg, "failed to create wallets service", err)
	}
	adminSvc, err := admin.NewService(admin.ServiceParams{
		DB:             dbClient,
		Profiles:       profileRepo,
		Orders:         orderRepo,
		Products:       productRepo,
		Payments:       paymentRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fatal(logg, "failed to create admin service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Sessions:     sessionManager,
			Gatherer:     registry,
			Auth:         authSvc,
			Profiles:     profilesSvc,
			Categories:   categoriesSvc,
			Products:     productsSvc,
			Negotiations: negotiationsSvc,
			Orders:       ordersSvc,
			Delivery:     deliverySvc,
			Wallets:      walletsSvc,
			Payments:     paymentsSvc,
			Webhook:      webhookSvc,
			Admin:        adminSvc,
			Settings:     settingsSvc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
