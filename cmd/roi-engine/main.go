package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-roi/internal/api"
	"github.com/miradorstack/mirador-roi/internal/cache"
	"github.com/miradorstack/mirador-roi/internal/config"
	"github.com/miradorstack/mirador-roi/internal/engine"
	"github.com/miradorstack/mirador-roi/internal/history"
	"github.com/miradorstack/mirador-roi/internal/metrics"
	"github.com/miradorstack/mirador-roi/internal/services"
	"github.com/miradorstack/mirador-roi/internal/store"
	"github.com/miradorstack/mirador-roi/internal/tracing"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-roi",
		slog.String("address", cfg.Server.Address),
		slog.String("store", cfg.Store.Driver),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to set up tracing", slog.Any("error", err))
		os.Exit(1)
	}

	warehouse, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open metric store", slog.Any("error", err))
		os.Exit(1)
	}
	defer warehouse.Close()

	window, err := cfg.Window()
	if err != nil {
		logger.Error("invalid default window", slog.Any("error", err))
		os.Exit(1)
	}

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := engine.NewPipeline(
		logger,
		warehouse,
		ruleEngine,
		engine.NewCorrelationEngine(logger),
		engine.NewInsightAssembler(nil),
	)
	summarizer := history.NewSummarizer(logger, warehouse)
	roiService := services.NewROIService(logger, pipeline, warehouse, summarizer, window)

	server, err := api.NewServer(cfg.Server, roiService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var gatewayServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		gatewayServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      api.NewGateway(roiService, logger).Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		}
		go func() {
			logger.Info("http gateway listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := gatewayServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http gateway exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	for name, srv := range map[string]*http.Server{"http gateway": gatewayServer, "metrics server": metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(name+" shutdown", slog.Any("error", err))
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", slog.Any("error", err))
	}

	logger.Info("mirador-roi stopped", slog.Duration("analyze_p95", roiService.LatencyP95()))
}

// openStore selects the warehouse driver and, when enabled, fronts it with the Redis read cache.
// A cache that cannot be reached at boot is logged and skipped.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var warehouse store.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := store.OpenPostgres(ctx, cfg.Store.Postgres.DSN, cfg.Store.Postgres.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		warehouse = pg
	case config.DriverHTTP:
		warehouse = store.NewHTTPStore(
			cfg.Store.HTTP.BaseURL,
			cfg.Store.HTTP.QueryPath,
			cfg.Store.HTTP.RowsPath,
			cfg.Store.HTTP.Timeout,
		)
	case config.DriverMemory:
		logger.Warn("using in-memory metric store; data is lost on restart")
		warehouse = store.NewMemoryStore(nil)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if !cfg.Cache.Enabled {
		return warehouse, nil
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Cache.Addr,
		Username:     cfg.Cache.Username,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		KeyPrefix:    cfg.Cache.KeyPrefix,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
		MaxRetries:   cfg.Cache.MaxRetries,
	})
	if err != nil {
		logger.Warn("redis cache unavailable", slog.Any("error", err))
		return warehouse, nil
	}
	return store.NewCachedStore(warehouse, provider, cfg.Cache.TTL, logger), nil
}
