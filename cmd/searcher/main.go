// Command searcher serves keyword search over HTTP.
//
// It scans the configured corpus (CSV or Postgres) per request, caches
// ranked results in Redis when available, and publishes one analytics event
// per search to Kafka.
//
// Usage:
//
//	go run ./cmd/searcher [--config configs/development.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/resilience"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/development.yaml", "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	c, err := pipeline.OpenCorpus(ctx, cfg)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	exec, err := pipeline.NewExecutor(cfg, m)
	if err != nil {
		slog.Error("failed to build search pipeline", "error", err)
		os.Exit(1)
	}

	var (
		queryCache   *cache.QueryCache
		cacheBreaker *resilience.Breaker
	)
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheBreaker = resilience.NewBreaker("redis-cache", 5, 30*time.Second)
		queryCache = cache.New(cache.Guard(redisClient, cacheBreaker), c.Name, cfg.Redis.CacheTTL, m).
			WithComputeTimeout(cfg.Server.WriteTimeout)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	deps := service.Dependencies{
		Executor: exec,
		Corpus:   c.Source,
		Metadata: c.Metadata,
		Cache:    queryCache,
		Metrics:  m,
	}
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		deps.Tracker = collector
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	svc := service.New(deps, service.Options{
		DefaultMinFrequency: cfg.Search.DefaultMinFrequency,
		DefaultLimit:        cfg.Search.DefaultLimit,
		Limits: validator.Limits{
			MaxKeywords: cfg.Search.MaxKeywords,
			MaxResults:  cfg.Search.MaxResults,
		},
	})
	h := handler.New(svc, queryCache)

	checker := health.NewChecker()
	checker.Register("corpus", c.HealthCheck())
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
		checker.Register("redis-cache", health.BreakerCheck(cacheBreaker))
	} else {
		checker.Register("redis", health.PingCheck(nil, true))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/cache/invalidate", middleware.AdminToken(cfg.Server.AdminToken)(http.HandlerFunc(h.CacheInvalidate)))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
		go limiter.Cleanup(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m, "/api/v1/search", "/api/v1/cache/stats", "/api/v1/cache/invalidate")(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// ListenAndServe returns as soon as Shutdown starts. In-flight searches
	// may still track events, so the collector must outlive them.
	<-shutdownDone

	slog.Info("search service stopped")
}
