package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches      int64          `json:"total_searches"`
	FailedSearches     int64          `json:"failed_searches"`
	CacheHits          int64          `json:"cache_hits"`
	ZeroResultCount    int64          `json:"zero_result_count"`
	DocsScanned        int64          `json:"docs_scanned"`
	DocsSkipped        int64          `json:"docs_skipped"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	P50LatencyMs       int64          `json:"p50_latency_ms"`
	P95LatencyMs       int64          `json:"p95_latency_ms"`
	P99LatencyMs       int64          `json:"p99_latency_ms"`
	TopKeywords        []KeywordCount `json:"top_keywords"`
	ZeroResultKeywords []KeywordCount `json:"zero_result_keywords"`
	SearchesByOrigin   map[Origin]int `json:"searches_by_origin"`
	SearchesPerMinute  float64        `json:"searches_per_minute"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// Aggregator folds search events into in-memory statistics. Latencies are
// kept in a ring of the most recent samples.
type Aggregator struct {
	mu             sync.RWMutex
	totalSearches  int64
	failed         int64
	cacheHits      int64
	zeroResults    int64
	docsScanned    int64
	docsSkipped    int64
	latencies      []int64
	nextLatency    int
	keywordCounts  map[string]int64
	zeroResultKeys map[string]int64
	byOrigin       map[Origin]int
	startTime      time.Time
	logger         *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, 1024),
		keywordCounts:  make(map[string]int64),
		zeroResultKeys: make(map[string]int64),
		byOrigin:       make(map[Origin]int),
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka handler that records each SearchEvent.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := kafka.DecodeJSON[SearchEvent](msg.Value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return err
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	a.byOrigin[event.Origin]++
	if event.Type == EventFailed {
		a.failed++
		return
	}
	if event.CacheHit {
		a.cacheHits++
	}
	a.docsScanned += int64(event.Scanned)
	a.docsSkipped += int64(event.Skipped)
	for _, kw := range event.Keywords {
		a.keywordCounts[kw]++
		if event.Returned == 0 {
			a.zeroResultKeys[kw]++
		}
	}
	if event.Returned == 0 {
		a.zeroResults++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
}

// DefaultTopKeywords is the length of the keyword leaderboards when the
// caller does not ask for another.
const DefaultTopKeywords = 10

// Stats summarizes everything recorded so far. top bounds both keyword
// leaderboards.
func (a *Aggregator) Stats(top int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		FailedSearches:   a.failed,
		CacheHits:        a.cacheHits,
		ZeroResultCount:  a.zeroResults,
		DocsScanned:      a.docsScanned,
		DocsSkipped:      a.docsSkipped,
		SearchesByOrigin: make(map[Origin]int, len(a.byOrigin)),
	}
	for origin, n := range a.byOrigin {
		stats.SearchesByOrigin[origin] = n
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopKeywords = topN(a.keywordCounts, top)
	stats.ZeroResultKeywords = topN(a.zeroResultKeys, top)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.SearchesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then keyword ascending.
func topN(counts map[string]int64, n int) []KeywordCount {
	result := make([]KeywordCount, 0, len(counts))
	for kw, count := range counts {
		result = append(result, KeywordCount{Keyword: kw, Count: count})
	}
	slices.SortFunc(result, func(x, y KeywordCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Keyword, y.Keyword)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
