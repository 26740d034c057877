// Command kwsearch ranks the documents of a corpus by how often they use a
// set of keywords and prints the top rows joined with their metadata.
//
// Usage:
//
//	go run ./cmd/kwsearch [-k rt,pcr,polymerase,chain] [-m 2] [-n 5] [--format table|json]
//	go run ./cmd/kwsearch --import        # load the CSV corpus into Postgres
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/redis"
)

type options struct {
	configPath       string
	keywords         []string
	minFrequency     int
	top              int
	format           string
	width            int
	source           string
	csvPath          string
	sampleEvery      int
	workers          int
	keepCase         bool
	importCorpus     bool
	publishAnalytics bool
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "kwsearch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("kwsearch", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to config file (defaults and KFS_* env when empty)")
	flagSet.StringSliceVarP(&opts.keywords, "keywords", "k", []string{"rt", "pcr", "polymerase", "chain"}, "keywords to count")
	flagSet.IntVarP(&opts.minFrequency, "min-frequency", "m", 2, "minimum summed keyword count for a document to be listed")
	flagSet.IntVarP(&opts.top, "top", "n", 5, "rows to print (0 prints all)")
	flagSet.StringVarP(&opts.format, "format", "f", presenter.FormatTable, "output format: table or json")
	flagSet.IntVar(&opts.width, "width", 60, "truncate titles and abstracts to this many characters in table output (0 disables)")
	flagSet.StringVar(&opts.source, "source", "", "corpus source: csv or postgres (overrides config)")
	flagSet.StringVar(&opts.csvPath, "csv", "", "path to metadata.csv (overrides config)")
	flagSet.IntVar(&opts.sampleEvery, "sample-every", 0, "keep every n-th CSV row (overrides config)")
	flagSet.IntVarP(&opts.workers, "workers", "w", 0, "documents analyzed concurrently (overrides config)")
	flagSet.BoolVar(&opts.keepCase, "keep-case", false, "match keywords exactly as given instead of lowercasing them")
	flagSet.BoolVar(&opts.importCorpus, "import", false, "import the CSV corpus into Postgres and exit")
	flagSet.BoolVar(&opts.publishAnalytics, "publish-analytics", false, "publish a search event to Kafka")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, flagSet, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.importCorpus {
		return importCorpus(ctx, cfg)
	}
	return search(ctx, cfg, opts)
}

func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, opts options) {
	if flagSet.Changed("source") {
		cfg.Corpus.Source = opts.source
	}
	if flagSet.Changed("csv") {
		cfg.Corpus.CSVPath = opts.csvPath
	}
	if flagSet.Changed("sample-every") {
		cfg.Corpus.SampleEvery = opts.sampleEvery
	}
	if flagSet.Changed("workers") {
		cfg.Search.Workers = opts.workers
	}
}

func search(ctx context.Context, cfg *config.Config, opts options) error {
	c, err := pipeline.OpenCorpus(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	exec, err := pipeline.NewExecutor(cfg, nil)
	if err != nil {
		return err
	}

	deps := service.Dependencies{
		Executor: exec,
		Corpus:   c.Source,
		Metadata: c.Metadata,
	}
	if opts.publishAnalytics {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 16, 1, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		deps.Tracker = collector
	}
	svc := service.New(deps, service.Options{DefaultMinFrequency: cfg.Search.DefaultMinFrequency})

	keywords := opts.keywords
	if !opts.keepCase {
		keywords = lowercase(keywords)
	}
	minFrequency := opts.minFrequency
	resp, err := svc.Search(ctx, &searcher.SearchRequest{
		Keywords:     keywords,
		MinFrequency: &minFrequency,
		Limit:        opts.top,
		WithMetadata: true,
	}, analytics.OriginCLI)
	if err != nil {
		return err
	}

	slog.Info("search finished",
		"keywords", resp.Keywords,
		"min_frequency", resp.MinFrequency,
		"scanned", resp.Scanned,
		"skipped", resp.Skipped,
		"matched", resp.Matched,
		"ranked", resp.Total,
		"latency_ms", resp.LatencyMs,
	)
	return presenter.Write(os.Stdout, opts.format, resp, resp.Rows, opts.width)
}

// importCorpus copies the sampled CSV rows into Postgres and drops cached
// results computed over the previous contents.
func importCorpus(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	store := corpus.NewPostgresStore(db, cfg.Corpus.RequireFullText)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	src := corpus.NewCSVSource(cfg.Corpus.CSVPath, corpus.CSVOptions{SampleEvery: cfg.Corpus.SampleEvery})
	n, err := store.Import(ctx, src.Records(ctx))
	if err != nil {
		return fmt.Errorf("importing %s: %w", cfg.Corpus.CSVPath, err)
	}
	slog.Info("import complete", "path", cfg.Corpus.CSVPath, "records", n)

	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rc, err := pkgredis.NewClient(redisCtx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cached results not invalidated", "error", err)
		return nil
	}
	defer rc.Close()
	corpusName := pipeline.SourcePostgres + ":" + cfg.Postgres.Database
	if _, err := cache.New(rc, corpusName, cfg.Redis.CacheTTL, nil).Invalidate(ctx); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
	}
	return nil
}

func lowercase(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(strings.TrimSpace(w))
	}
	return out
}
