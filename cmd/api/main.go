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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andriwidya/go-checkout-saga/internal/config"
	"github.com/andriwidya/go-checkout-saga/internal/events"
	"github.com/andriwidya/go-checkout-saga/internal/httpx"
	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
	"github.com/andriwidya/go-checkout-saga/internal/postgres"
	"github.com/andriwidya/go-checkout-saga/internal/redisx"
	"github.com/andriwidya/go-checkout-saga/internal/saga"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		store   saga.OrderStore
		ledger  saga.InventoryLedger
		catalog httpx.Catalog
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("postgres_schema_failed", zap.Error(err))
		}
		stockRepo := &orders.StockRepo{DB: pool}
		store = &orders.Repo{DB: pool}
		ledger = stockRepo
		catalog = stockRepo
		logger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		mem := orders.NewMemStore()
		store = mem
		ledger = mem
		catalog = mem
		logger.Warn("storage_ready", zap.String("backend", "memory"))
	}

	var cache saga.StatusCache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		cache = &redisx.StatusCache{RDB: rdb}
		logger.Info("redis_cache_enabled", zap.String("addr", cfg.RedisAddr))
	}

	bus := events.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop()

	if len(cfg.KafkaBrokers) > 0 {
		bridge := events.NewKafkaBridge(cfg.KafkaBrokers, cfg.ServiceName, logger)
		bridge.Attach(bus)
		bridge.Start(ctx)
		defer bridge.Close()
		logger.Info("kafka_bridge_enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	var gateway payment.Processor
	if cfg.UseMockPayment() {
		gateway = payment.NewMockGateway(cfg.MockDelay, cfg.MockFailureRate, logger)
		logger.Warn("payment_gateway", zap.String("provider", "mock"))
	} else {
		gateway = payment.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransIsProduction, logger)
		logger.Info("payment_gateway",
			zap.String("provider", "midtrans"),
			zap.Bool("production", cfg.MidtransIsProduction),
		)
	}
	proc := payment.NewRetrier(gateway, cfg.PaymentTimeout, cfg.PaymentRetryCount, cfg.PaymentRetryDelay, logger)

	orchestrator := saga.New(store, ledger, proc, bus, cache, logger)
	sandboxAutoPaid := cfg.SandboxAutoPaid && !cfg.MidtransIsProduction
	reconciler := saga.NewReconciler(store, proc, bus, cache, sandboxAutoPaid, logger)

	r := httpx.NewRouter()
	(&httpx.OrdersHandler{Saga: orchestrator, Log: logger}).Register(r)
	(&httpx.PaymentHandler{
		Reconciler: reconciler,
		ServerKey:  cfg.MidtransServerKey,
		ClientKey:  cfg.MidtransClientKey,
		Log:        logger,
	}).Register(r)
	(&httpx.CatalogHandler{Store: catalog, Log: logger}).Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_server_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_error", zap.Error(err))
	}
	logger.Info("http_server_stopped")
}

func newLogger(cfg config.Config) *zap.Logger {
	zc := zap.NewProductionConfig()
	if cfg.Env == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build(zap.Fields(
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
	))
	if err != nil {
		os.Exit(1)
	}
	return logger
}
