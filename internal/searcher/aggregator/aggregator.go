// Package aggregator scans a corpus once and sums, per document, the
// occurrences of a keyword list. Documents are analyzed concurrently on a
// bounded worker pool; the Accumulator is the only shared state.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/frequency"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

var errInvalidUTF8 = errors.New("text is not valid UTF-8")

type Options struct {
	// Workers bounds the number of documents analyzed at once.
	Workers int
	// ProgressEvery logs a progress line after every n scanned documents.
	// Zero disables progress logging.
	ProgressEvery int
	Metrics       *metrics.Metrics
}

// Stats summarises one scan.
type Stats struct {
	Scanned int `json:"scanned"`
	Skipped int `json:"skipped"`
	Matched int `json:"matched"`
}

type Aggregator struct {
	analyzer *frequency.Analyzer
	opts     Options
	logger   *slog.Logger
}

func New(analyzer *frequency.Analyzer, opts Options) *Aggregator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Aggregator{
		analyzer: analyzer,
		opts:     opts,
		logger:   slog.Default().With("component", "aggregator"),
	}
}

// Run consumes docs exactly once and returns the per-document keyword
// scores. A document that fails on its own (bad text, malformed record) is
// logged and skipped; any other source error or ctx cancellation aborts the
// scan.
func (a *Aggregator) Run(ctx context.Context, docs iter.Seq2[corpus.Document, error], keywords []string) (*Accumulator, Stats, error) {
	acc := NewAccumulator()
	var scanned, skipped atomic.Int64

	if m := a.opts.Metrics; m != nil {
		m.ScansInFlight.Inc()
		defer m.ScansInFlight.Dec()
	}

	skip := func(docErr *apperrors.DocumentError) {
		skipped.Add(1)
		if m := a.opts.Metrics; m != nil {
			m.DocsSkippedTotal.Inc()
		}
		a.logger.Warn("skipping document", "doc_id", docErr.DocID, "error", docErr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	var sourceErr error
	for doc, err := range docs {
		if err != nil {
			if docErr, ok := apperrors.AsDocumentError(err); ok {
				skip(docErr)
				continue
			}
			sourceErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if !utf8.ValidString(doc.Text) {
				skip(apperrors.NewDocumentError(doc.ID, errInvalidUTF8))
				return nil
			}
			table, err := a.analyzer.Analyze(doc.Text)
			if err != nil {
				skip(apperrors.NewDocumentError(doc.ID, err))
				return nil
			}
			acc.Add(doc.ID, table.Sum(keywords))

			n := scanned.Add(1)
			if m := a.opts.Metrics; m != nil {
				m.DocsScannedTotal.Inc()
			}
			if a.opts.ProgressEvery > 0 && n%int64(a.opts.ProgressEvery) == 0 {
				a.logger.Info("documents scanned", "scanned", n, "matched", acc.Len())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}
	if sourceErr != nil {
		return nil, Stats{}, fmt.Errorf("reading corpus: %w", sourceErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, fmt.Errorf("corpus scan aborted: %w", err)
	}

	stats := Stats{
		Scanned: int(scanned.Load()),
		Skipped: int(skipped.Load()),
		Matched: acc.Len(),
	}
	if m := a.opts.Metrics; m != nil {
		m.DocsMatchedTotal.Add(float64(stats.Matched))
	}
	a.logger.Debug("corpus scan complete",
		"scanned", stats.Scanned,
		"skipped", stats.Skipped,
		"matched", stats.Matched,
	)
	return acc, stats, nil
}
