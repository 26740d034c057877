// Package service runs a search request end to end: validation, the cached
// corpus scan, result limiting, the metadata join and the analytics event.
// The HTTP handler and the Kafka worker both go through it.
package service

import (
	"context"
	"iter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

type Searcher interface {
	Search(ctx context.Context, docs iter.Seq2[corpus.Document, error], keywords []string, minFrequency int) (*executor.SearchResult, error)
}

// Tracker receives one event per search. *analytics.Collector implements it.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

type Options struct {
	DefaultMinFrequency int
	DefaultLimit        int
	Limits              validator.Limits
}

// Dependencies lists the collaborators of a Service. Cache, Metadata,
// Tracker and Metrics are optional.
type Dependencies struct {
	Executor Searcher
	Corpus   corpus.Source
	Metadata corpus.MetadataLookup
	Cache    *cache.QueryCache
	Tracker  Tracker
	Metrics  *metrics.Metrics
}

type Service struct {
	deps Dependencies
	opts Options
}

func New(deps Dependencies, opts Options) *Service {
	return &Service{deps: deps, opts: opts}
}

// Search validates req and runs it over the configured corpus. The returned
// error is a *validator.ValidationError for bad requests; other errors come
// from the scan.
func (s *Service) Search(ctx context.Context, req *searcher.SearchRequest, origin analytics.Origin) (*searcher.SearchResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if err := validator.ValidateSearchRequest(req, s.opts.Limits); err != nil {
		return nil, err
	}
	minFrequency := req.Threshold(s.opts.DefaultMinFrequency)
	limit := req.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}

	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return s.deps.Executor.Search(ctx, s.deps.Corpus.Documents(ctx), req.Keywords, minFrequency)
	}

	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	cacheStatus := "disabled"
	if s.deps.Cache != nil && len(req.Keywords) > 0 {
		result, cacheHit, err = s.deps.Cache.GetOrCompute(ctx, req.Keywords, minFrequency, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		log.Error("search failed", "keywords", req.Keywords, "error", err)
		s.track(ctx, req, origin, nil, 0, false, time.Since(start), err)
		return nil, err
	}

	top := ranker.Top(result.Results, limit)
	var lookup corpus.MetadataLookup
	if req.WithMetadata {
		lookup = s.deps.Metadata
	}
	rows, err := presenter.Join(ctx, top, lookup)
	if err != nil {
		log.Error("metadata join failed", "error", err)
		s.track(ctx, req, origin, result, 0, cacheHit, time.Since(start), err)
		return nil, err
	}

	latency := time.Since(start)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
	log.Info("search completed",
		"keywords", req.Keywords,
		"min_frequency", minFrequency,
		"total", len(result.Results),
		"returned", len(rows),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	s.track(ctx, req, origin, result, len(rows), cacheHit, latency, nil)

	resp := searcher.NewResponse(req.ID, result, rows)
	resp.CacheHit = cacheHit
	resp.LatencyMs = latency.Milliseconds()
	return resp, nil
}

func (s *Service) track(ctx context.Context, req *searcher.SearchRequest, origin analytics.Origin, result *executor.SearchResult, returned int, cacheHit bool, latency time.Duration, err error) {
	if s.deps.Tracker == nil {
		return
	}
	event := analytics.SearchEvent{
		Type:         analytics.Classify(err, cacheHit, returned),
		Origin:       origin,
		Keywords:     req.Keywords,
		MinFrequency: req.Threshold(s.opts.DefaultMinFrequency),
		Returned:     returned,
		LatencyMs:    latency.Milliseconds(),
		CacheHit:     cacheHit,
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestIDFromContext(ctx),
	}
	if result != nil {
		event.Scanned = result.Scanned
		event.Skipped = result.Skipped
		event.Matched = result.Matched
	}
	s.deps.Tracker.Track(event)
}
