package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/frequency"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/aggregator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
)

var docs = corpus.Slice{
	{ID: "d1", Text: "RT PCR test uses polymerase chain reaction"},
	{ID: "d2", Text: "no relevant content here"},
	{ID: "d3", Text: "PCR PCR PCR"},
}

type memStore struct{ data map[string][]byte }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(context.Context, string) (int64, error) {
	n := int64(len(s.data))
	s.data = map[string][]byte{}
	return n, nil
}

func newHandler(t testing.TB, qc *cache.QueryCache) *Handler {
	analyzer := frequency.NewAnalyzer(tokenizer.Prose{}, englishStopwords(t))
	exec := executor.New(aggregator.New(analyzer, aggregator.Options{Workers: 2}), 0, nil)
	svc := service.New(service.Dependencies{
		Executor: exec,
		Corpus:   docs,
		Cache:    qc,
	}, service.Options{DefaultLimit: 10, Limits: validator.Limits{MaxKeywords: 4, MaxResults: 50}})
	return New(svc, qc)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body)))
	return rec
}

func TestSearchOK(t *testing.T) {
	h := newHandler(t, nil)
	rec := post(h.Search, `{"keywords":["pcr","polymerase","chain"],"min_frequency":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searcher.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "d1", resp.Rows[0].DocID)
	assert.Equal(t, 3, resp.Rows[0].Frequency)
	assert.Equal(t, "d3", resp.Rows[1].DocID)
	assert.Equal(t, 3, resp.Scanned)
}

func TestSearchBadRequests(t *testing.T) {
	h := newHandler(t, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"keywords":`, "invalid request body"},
		{"unknown field", `{"q":"pcr"}`, "invalid request body"},
		{"blank keyword", `{"keywords":["pcr",""]}`, "keywords[1]"},
		{"negative threshold", `{"keywords":["pcr"],"min_frequency":-1}`, "min_frequency"},
		{"limit too large", `{"keywords":["pcr"],"limit":51}`, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h.Search, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	qc := cache.New(&memStore{data: map[string][]byte{}}, "test", time.Minute, nil)
	h := newHandler(t, qc)

	post(h.Search, `{"keywords":["pcr"]}`)
	rec := post(h.Search, `{"keywords":["pcr"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)

	stats := httptest.NewRecorder()
	h.CacheStats(stats, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, stats.Body.String(), `"hits":1`)
	assert.Contains(t, stats.Body.String(), `"hit_rate":"50.0%"`)

	inv := httptest.NewRecorder()
	h.CacheInvalidate(inv, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, inv.Code)
	assert.Contains(t, inv.Body.String(), `"keys_deleted":1`)
}

func TestCacheEndpointsDisabled(t *testing.T) {
	h := newHandler(t, nil)

	stats := httptest.NewRecorder()
	h.CacheStats(stats, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, stats.Body.String(), "disabled")

	inv := httptest.NewRecorder()
	h.CacheInvalidate(inv, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, inv.Code)
}

func englishStopwords(tb testing.TB) *stopwords.Set {
	tb.Helper()
	stop, err := stopwords.Load(stopwords.LanguageEnglish, "")
	require.NoError(tb, err)
	return stop
}
