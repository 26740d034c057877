package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, events)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 2, time.Hour)
	c.Start(context.Background())

	c.Track(SearchEvent{Origin: OriginHTTP, Keywords: []string{"pcr"}})
	c.Track(SearchEvent{Origin: OriginHTTP, Keywords: []string{"rt"}})
	assert.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 10*time.Millisecond)

	c.Track(SearchEvent{Origin: OriginWorker, RequestID: "r1"})
	c.Close()
	assert.Equal(t, 3, pub.count())

	last := pub.batches[len(pub.batches)-1][0]
	assert.Equal(t, "worker", last.Key)
	assert.Equal(t, "r1", last.RequestID)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(pub, 100, 50, time.Hour)
	c.Start(ctx)

	c.Track(SearchEvent{Origin: OriginCLI})
	cancel()
	<-c.done
	assert.Equal(t, 1, pub.count())
}

func TestCollectorSurvivesPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 100, 1, time.Hour)
	c.Start(context.Background())
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	c.Close()
	assert.Equal(t, 2, pub.count())
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 1, 1, time.Hour)
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	assert.Len(t, c.eventCh, 1)
}

func TestCollectorTrackAfterCloseIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 50, time.Hour)
	c.Start(context.Background())
	c.Track(SearchEvent{Origin: OriginHTTP})
	c.Close()

	assert.NotPanics(t, func() { c.Track(SearchEvent{Origin: OriginHTTP}) })
	assert.NotPanics(t, c.Close)
	assert.Equal(t, 1, pub.count())
}

func TestCollectorTrackRacingClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1000, 10, time.Hour)
	c.Start(context.Background())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Track(SearchEvent{Origin: OriginWorker})
			}
		}()
	}
	c.Close()
	wg.Wait()
	assert.LessOrEqual(t, pub.count(), 800)
}

func TestCollectorCloseWithoutStart(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 10, 1, time.Hour)
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked without Start")
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Type: EventSearch, Origin: OriginHTTP, Keywords: []string{"pcr", "chain"}, Scanned: 10, Returned: 2, LatencyMs: 10})
	agg.Record(SearchEvent{Type: EventCacheHit, Origin: OriginHTTP, Keywords: []string{"pcr"}, Returned: 1, CacheHit: true, LatencyMs: 2})
	agg.Record(SearchEvent{Type: EventZeroResult, Origin: OriginWorker, Keywords: []string{"ebola"}, Scanned: 10, Skipped: 1, LatencyMs: 30})
	agg.Record(SearchEvent{Type: EventFailed, Origin: OriginWorker, Keywords: []string{"rt"}})

	stats := agg.Stats(DefaultTopKeywords)
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.FailedSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(20), stats.DocsScanned)
	assert.Equal(t, int64(1), stats.DocsSkipped)
	assert.Equal(t, 2, stats.SearchesByOrigin[OriginWorker])
	assert.InDelta(t, 14.0, stats.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(30), stats.P99LatencyMs)

	require.NotEmpty(t, stats.TopKeywords)
	assert.Equal(t, KeywordCount{Keyword: "pcr", Count: 2}, stats.TopKeywords[0])
	assert.Equal(t, []KeywordCount{{Keyword: "ebola", Count: 1}}, stats.ZeroResultKeywords)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	err := handle(context.Background(), kafka.Message{Value: []byte(`{"type":"search","keywords":["rt"],"returned":1}`)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.Stats(DefaultTopKeywords).TotalSearches)

	err = handle(context.Background(), kafka.Message{Value: []byte(`garbage`)})
	assert.ErrorIs(t, err, kafka.ErrPoison)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, EventFailed, Classify(errors.New("x"), false, 0))
	assert.Equal(t, EventZeroResult, Classify(nil, true, 0))
	assert.Equal(t, EventCacheHit, Classify(nil, true, 3))
	assert.Equal(t, EventSearch, Classify(nil, false, 3))
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Type: EventSearch, Keywords: []string{"pcr"}, Returned: 1})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_searches":1`)
}

func TestStatsHandlerTop(t *testing.T) {
	agg := NewAggregator()
	for _, kw := range []string{"pcr", "pcr", "rt", "chain"} {
		agg.Record(SearchEvent{Type: EventSearch, Keywords: []string{kw}, Returned: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, []KeywordCount{{Keyword: "pcr", Count: 2}}, stats.TopKeywords)

	for _, bad := range []string{"0", "101", "many"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}
