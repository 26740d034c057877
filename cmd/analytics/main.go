// Command analytics aggregates search events into usage statistics.
//
// It consumes the analytics topic written by the searcher and the worker,
// keeps the totals in memory (searches, latency percentiles, cache hits,
// most requested keywords, keywords that found nothing), snapshots them to
// Postgres periodically and serves them at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [--config configs/development.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		checker.Register("postgres", health.PingCheck(nil, true))
	} else {
		defer db.Close()
		store := snapshot.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate snapshot table", "error", err)
			os.Exit(1)
		}
		if latest, err := store.Latest(ctx); err != nil {
			slog.Warn("could not load last snapshot", "error", err)
		} else if latest != nil {
			slog.Info("last snapshot", "total_searches", latest.TotalSearches)
		}
		go store.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	analyticsHandler := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m, "/api/v1/analytics")(chain)
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("analytics service stopped")
}
