// Package cache stores search results in Redis keyed by the normalized
// request, and collapses concurrent identical searches into one corpus scan.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

const keyPrefix = "kwsearch:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	corpus  string
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	computeTimeout time.Duration
}

// DefaultComputeTimeout bounds a shared scan started by GetOrCompute.
const DefaultComputeTimeout = 2 * time.Minute

// New returns a cache for results computed over the named corpus. Results of
// different corpora never share keys. m may be nil.
func New(store Store, corpus string, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		corpus:  corpus,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),

		computeTimeout: DefaultComputeTimeout,
	}
}

// WithComputeTimeout sets how long a shared scan may run. Non-positive values
// keep the default.
func (c *QueryCache) WithComputeTimeout(d time.Duration) *QueryCache {
	if d > 0 {
		c.computeTimeout = d
	}
	return c
}

func (c *QueryCache) Get(ctx context.Context, keywords []string, minFrequency int) (*executor.SearchResult, bool) {
	key := c.buildKey(keywords, minFrequency)
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "keywords", keywords, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, keywords []string, minFrequency int, result *executor.SearchResult) {
	key := c.buildKey(keywords, minFrequency)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once for all
// concurrent callers asking for the same key. hit reports whether the result
// came from Redis.
//
// The shared scan runs on a context detached from any single caller and
// bounded by the compute timeout, so one caller timing out does not fail the
// others. Each caller still stops waiting when its own ctx is done.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	keywords []string,
	minFrequency int,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (result *executor.SearchResult, hit bool, err error) {
	if result, ok := c.Get(ctx, keywords, minFrequency); ok {
		return result, true, nil
	}
	key := c.buildKey(keywords, minFrequency)
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		result, err := computeFn(flightCtx)
		if err != nil {
			return nil, err
		}
		c.Set(flightCtx, keywords, minFrequency, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops every cached result, e.g. after the corpus is reimported.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// keyMaterial is hashed into the cache key. JSON keeps the list boundaries,
// so a keyword containing a comma never collides with two keywords.
type keyMaterial struct {
	Corpus       string   `json:"c"`
	Keywords     []string `json:"k"`
	MinFrequency int      `json:"m"`
}

func (c *QueryCache) buildKey(keywords []string, minFrequency int) string {
	raw, _ := json.Marshal(keyMaterial{
		Corpus:       c.corpus,
		Keywords:     sortedKeywords(keywords),
		MinFrequency: minFrequency,
	})
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// sortedKeywords sorts a copy of the list. Duplicates are kept because a
// repeated keyword contributes to the score once per occurrence. Case is kept
// because uppercase keywords are matched verbatim.
func sortedKeywords(keywords []string) []string {
	sorted := slices.Clone(keywords)
	slices.Sort(sorted)
	return sorted
}
