package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/api"
	"github.com/patrickwarner/openbidder/internal/config"
	"github.com/patrickwarner/openbidder/internal/db"
	"github.com/patrickwarner/openbidder/internal/ledger"
	"github.com/patrickwarner/openbidder/internal/logic/bidding"
	"github.com/patrickwarner/openbidder/internal/logic/smoothing"
	"github.com/patrickwarner/openbidder/internal/models"
	"github.com/patrickwarner/openbidder/internal/observability"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	campaigns, err := pg.LoadCampaigns()
	if err != nil {
		return fmt.Errorf("load campaigns: %w", err)
	}
	store := models.NewInMemoryCampaignStore()
	if err := store.SetCampaigns(campaigns); err != nil {
		return fmt.Errorf("seed campaign store: %w", err)
	}
	logger.Info("campaigns loaded", zap.Int("count", len(campaigns)))

	metrics := observability.NewPrometheusRegistry()

	var redisStore *db.RedisStore
	if cfg.SmoothingBackend == smoothing.BackendRedis {
		redisStore, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisStore.Close()
	}
	smoother, err := smoothing.New(smoothing.Config{
		Capacity:   cfg.SmoothingCapacity,
		RefillRate: cfg.SmoothingRefillRate,
		Backend:    cfg.SmoothingBackend,
	}, redisStore, metrics)
	if err != nil {
		return fmt.Errorf("init smoothing: %w", err)
	}
	logger.Info("smoothing initialized",
		zap.String("backend", cfg.SmoothingBackend),
		zap.Float64("capacity", cfg.SmoothingCapacity),
		zap.Float64("refill_rate", cfg.SmoothingRefillRate))

	prices := bidding.NewUniformPriceGenerator(time.Now().UnixNano())
	engine := bidding.NewEngine(store, ledger.NewPostgresLedger(pg), smoother, prices, metrics, logger)

	pool := bidding.NewPool(bidding.PoolConfig{
		CoreSize:  cfg.BidPoolCoreSize,
		MaxSize:   cfg.BidPoolMaxSize,
		QueueSize: cfg.BidPoolQueueSize,
	}, logger)
	defer pool.Shutdown()

	orchestrator := bidding.NewOrchestrator(engine, pool, cfg.BidTimeout, metrics, logger)

	server := api.NewServer(logger, pg, store, orchestrator, metrics, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(server.Router(), "server"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
