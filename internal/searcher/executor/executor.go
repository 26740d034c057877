package executor

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/aggregator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

type SearchResult struct {
	Keywords     []string        `json:"keywords"`
	MinFrequency int             `json:"min_frequency"`
	Scanned      int             `json:"scanned"`
	Skipped      int             `json:"skipped"`
	Matched      int             `json:"matched"`
	Results      []ranker.Result `json:"results"`
}

type Executor struct {
	aggregator  *aggregator.Aggregator
	maxKeywords int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New builds an Executor. maxKeywords <= 0 means no limit; m may be nil.
func New(agg *aggregator.Aggregator, maxKeywords int, m *metrics.Metrics) *Executor {
	return &Executor{
		aggregator:  agg,
		maxKeywords: maxKeywords,
		metrics:     m,
		logger:      slog.Default().With("component", "query-executor"),
	}
}

// Search scans docs once and returns the documents whose summed keyword
// count is at least minFrequency, highest first. Keywords must already be
// lowercase; they are matched verbatim against lowercased tokens.
func (e *Executor) Search(ctx context.Context, docs iter.Seq2[corpus.Document, error], keywords []string, minFrequency int) (*SearchResult, error) {
	start := time.Now()
	if err := ValidateKeywords(keywords, e.maxKeywords); err != nil {
		e.observe("invalid", 0)
		return nil, err
	}
	if minFrequency < 0 {
		e.observe("invalid", 0)
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"min_frequency must not be negative, got %d", minFrequency)
	}
	if len(keywords) == 0 {
		e.observe("empty", 0)
		return &SearchResult{
			Keywords:     []string{},
			MinFrequency: minFrequency,
			Results:      []ranker.Result{},
		}, nil
	}

	acc, stats, err := e.aggregator.Run(ctx, docs, keywords)
	if err != nil {
		e.observe("error", 0)
		return nil, err
	}
	ranked := ranker.Rank(acc.Snapshot(), minFrequency)
	outcome := "ok"
	if len(ranked) == 0 {
		outcome = "empty"
	}
	e.observe(outcome, len(ranked))

	e.logger.Info("search executed",
		"keywords", keywords,
		"min_frequency", minFrequency,
		"scanned", stats.Scanned,
		"skipped", stats.Skipped,
		"matched", stats.Matched,
		"results", len(ranked),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &SearchResult{
		Keywords:     keywords,
		MinFrequency: minFrequency,
		Scanned:      stats.Scanned,
		Skipped:      stats.Skipped,
		Matched:      stats.Matched,
		Results:      ranked,
	}, nil
}

// ValidateKeywords rejects empty keywords and lists longer than max (when
// max > 0). It does not lowercase: uppercase keywords are valid but never
// match.
func ValidateKeywords(keywords []string, max int) error {
	if max > 0 && len(keywords) > max {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"at most %d keywords allowed, got %d", max, len(keywords))
	}
	for i, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			return apperrors.Newf(apperrors.ErrInvalidKeyword, http.StatusBadRequest,
				"keyword at position %d is empty", i)
		}
	}
	return nil
}

func (e *Executor) observe(outcome string, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" || outcome == "empty" {
		e.metrics.SearchResultsCount.Observe(float64(results))
	}
}
