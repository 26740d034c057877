// Package pipeline assembles the search pipeline and its corpus from
// configuration. The commands share it so a batch run, the HTTP service and
// the Kafka worker analyze text identically.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/frequency"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/aggregator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/postgres"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// NewAnalyzer loads the stopword list and tokenizer named in cfg. Failures
// wrap ErrInitialization.
func NewAnalyzer(cfg config.AnalyzerConfig) (*frequency.Analyzer, error) {
	stop, err := stopwords.Load(cfg.StopwordsLanguage, cfg.StopwordsPath)
	if err != nil {
		return nil, err
	}
	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInitialization, err)
	}
	logger.WithComponent("pipeline").Info("analyzer ready",
		"tokenizer", cfg.Tokenizer,
		"stopwords", stop.Len(),
	)
	return frequency.NewAnalyzer(tok, stop), nil
}

// NewExecutor builds the search executor. m may be nil.
func NewExecutor(cfg *config.Config, m *metrics.Metrics) (*executor.Executor, error) {
	analyzer, err := NewAnalyzer(cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	agg := aggregator.New(analyzer, aggregator.Options{
		Workers:       cfg.Search.Workers,
		ProgressEvery: cfg.Search.ProgressEvery,
		Metrics:       m,
	})
	return executor.New(agg, cfg.Search.MaxKeywords, m), nil
}

// Corpus is an opened document source with its metadata lookup.
type Corpus struct {
	Name     string
	Source   corpus.Source
	Metadata corpus.MetadataLookup
	// DB is set for the postgres source.
	DB *postgres.Client
}

// OpenCorpus opens the source selected by cfg.Corpus.Source.
func OpenCorpus(ctx context.Context, cfg *config.Config) (*Corpus, error) {
	switch cfg.Corpus.Source {
	case SourceCSV, "":
		src := corpus.NewCSVSource(cfg.Corpus.CSVPath, corpus.CSVOptions{
			SampleEvery:     cfg.Corpus.SampleEvery,
			RequireFullText: cfg.Corpus.RequireFullText,
		})
		return &Corpus{Name: SourceCSV + ":" + cfg.Corpus.CSVPath, Source: src, Metadata: src}, nil
	case SourcePostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInitialization, err)
		}
		store := corpus.NewPostgresStore(db, cfg.Corpus.RequireFullText)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Corpus{
			Name:     SourcePostgres + ":" + cfg.Postgres.Database,
			Source:   store,
			Metadata: store,
			DB:       db,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown corpus source %q", apperrors.ErrInitialization, cfg.Corpus.Source)
	}
}

// HealthCheck reports the database for the postgres source and nothing to
// check for a file.
func (c *Corpus) HealthCheck() health.Check {
	if c.DB == nil {
		return func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: c.Name}
		}
	}
	return health.PingCheck(c.DB.Ping, false)
}

func (c *Corpus) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
