package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/hirepurchase-backend/api/routes"
	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	"github.com/angelmondragon/hirepurchase-backend/internal/delivery"
	"github.com/angelmondragon/hirepurchase-backend/internal/payments"
	"github.com/angelmondragon/hirepurchase-backend/internal/policies"
	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/internal/stock"
	"github.com/angelmondragon/hirepurchase-backend/internal/waybills"
	"github.com/angelmondragon/hirepurchase-backend/pkg/config"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/env"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
	"github.com/angelmondragon/hirepurchase-backend/pkg/metrics"
	"github.com/angelmondragon/hirepurchase-backend/pkg/migrate"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/redis"
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

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	overpayment, err := enums.ParseOverpaymentPolicy(cfg.Ledger.DefaultOverpayment)
	if err != nil {
		logg.Error(ctx, "invalid overpayment policy", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)
	purchaseRepo := purchases.NewRepository(gdb)
	customerRepo := customers.NewRepository(gdb)

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Tx:        dbClient,
		Repo:      purchaseRepo,
		Customers: customerRepo,
		Stock:     stock.NewLedger(gdb),
		Policies:  policies.NewRepository(gdb),
		Outbox:    outboxService,
		Metrics:   ledgerMetrics,
	})
	requireService(ctx, logg, "purchase", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:                 dbClient,
		Repo:               payments.NewRepository(gdb),
		Purchases:          purchaseRepo,
		Customers:          customerRepo,
		Outbox:             outboxService,
		Metrics:            ledgerMetrics,
		DefaultOverpayment: overpayment,
	})
	requireService(ctx, logg, "payment", err)

	deliveryService, err := delivery.NewService(dbClient, delivery.NewRepository(gdb), purchaseRepo, outboxService, ledgerMetrics)
	requireService(ctx, logg, "delivery", err)

	waybillService, err := waybills.NewService(waybills.ServiceParams{
		Tx:        dbClient,
		Repo:      waybills.NewRepository(gdb),
		Purchases: purchaseRepo,
		Customers: customerRepo,
		Outbox:    outboxService,
		Metrics:   ledgerMetrics,
	})
	requireService(ctx, logg, "waybill", err)

	customerService, err := customers.NewService(dbClient, customerRepo, outboxService)
	requireService(ctx, logg, "customer", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.Instance(),
	})

	handler := routes.NewRouter(cfg, logg, routes.Readiness{
		"database": dbClient,
		"redis":    redisClient,
	}, redisClient, registry, routes.Services{
		Purchases: purchaseService,
		Payments:  paymentService,
		Delivery:  deliveryService,
		Waybills:  waybillService,
		Customers: customerService,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	logg.Info(shutdownCtx, "shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
