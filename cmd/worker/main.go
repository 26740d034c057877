// Command worker answers keyword search requests from Kafka.
//
// It consumes SearchRequest messages from the requests topic, runs each one
// over the configured corpus and publishes a SearchResponse keyed by the
// request ID to the results topic.
//
// Usage:
//
//	go run ./cmd/worker [--config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
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
	slog.Info("starting search worker",
		"requests_topic", cfg.Kafka.Topics.SearchRequests,
		"results_topic", cfg.Kafka.Topics.SearchResults,
	)

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

	deps := service.Dependencies{
		Executor: exec,
		Corpus:   c.Source,
		Metadata: c.Metadata,
		Metrics:  m,
	}
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := resilience.NewBreaker("redis-cache", 5, 30*time.Second)
		deps.Cache = cache.New(cache.Guard(redisClient, breaker), c.Name, cfg.Redis.CacheTTL, m).
			WithComputeTimeout(cfg.Server.WriteTimeout)
	}
	if cfg.Analytics.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		deps.Tracker = collector
	}

	svc := service.New(deps, service.Options{
		DefaultMinFrequency: cfg.Search.DefaultMinFrequency,
		DefaultLimit:        cfg.Search.DefaultLimit,
		Limits: validator.Limits{
			MaxKeywords: cfg.Search.MaxKeywords,
			MaxResults:  cfg.Search.MaxResults,
		},
	})

	results := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchResults)
	defer results.Close()
	w := worker.New(svc, results)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchRequests, w.Handle)

	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("corpus", c.HealthCheck())
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}
	slog.Info("search worker stopped")
}
