package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-classify/internal/api"
	"github.com/miradorstack/mirador-classify/internal/cache"
	"github.com/miradorstack/mirador-classify/internal/config"
	"github.com/miradorstack/mirador-classify/internal/engine"
	"github.com/miradorstack/mirador-classify/internal/metrics"
	"github.com/miradorstack/mirador-classify/internal/patterns"
	"github.com/miradorstack/mirador-classify/internal/repo"
	"github.com/miradorstack/mirador-classify/internal/services"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC classification service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := utils.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-classify", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	dict, err := patterns.LoadFile(cfg.Patterns.Path, logger)
	if err != nil {
		logger.Warn("pattern dictionary unavailable, starting empty", slog.Any("error", err))
		dict = patterns.Empty()
	}

	rules, err := engine.LoadRuleSet(cfg.Rules.Path, logger)
	if err != nil {
		return fmt.Errorf("load violation rules: %w", err)
	}

	classifier := engine.NewClassifier(logger, engine.NewScorer(rules), cfg.Classifier.Workers)
	store := repo.NewStore(logger, classifier, dict)

	resultCache := newResultCache(cfg.Cache, logger)
	defer resultCache.Close()

	var loader patterns.Loader
	if cfg.Patterns.Path != "" {
		loader = patterns.FileLoader{Path: cfg.Patterns.Path, Logger: logger}
	}
	service := services.NewClassifyService(logger, store, engine.NewFilterPipeline(logger), loader, resultCache, cfg.Cache.QueryTTL)

	server, err := api.NewServer(cfg.Server, service)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Patterns.Watch && cfg.Patterns.Path != "" {
		watcher, err := patterns.NewWatcher(cfg.Patterns.Path, cfg.Patterns.Debounce, loader, func(ctx context.Context, next *patterns.Dictionary) {
			if _, err := store.ReloadDictionary(ctx, next); err != nil {
				logger.Error("dictionary swap failed", slog.Any("error", err))
			}
		}, logger)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			logger.Warn("pattern watcher unavailable, hot reload disabled", slog.String("path", cfg.Patterns.Path), slog.Any("error", err))
		} else {
			defer watcher.Stop()
		}
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
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("mirador-classify stopped", slog.Duration("p95_filter_latency", service.LatencyP95()))
	return nil
}

func newResultCache(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NoopProvider{}
	}
	if cfg.Backend != config.BackendRedis {
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
		Prefix:       cfg.KeyPrefix,
	})
	if err != nil {
		logger.Warn("redis result cache unavailable", slog.Any("error", err))
		return cache.NoopProvider{}
	}
	return provider
}
