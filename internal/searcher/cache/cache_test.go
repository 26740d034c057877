package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, false, s.fail
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Keywords:     []string{"pcr"},
		MinFrequency: 1,
		Scanned:      3,
		Matched:      1,
		Results:      []ranker.Result{{DocID: "d3", Frequency: 3}},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	c := New(newMemStore(), "csv", time.Minute, m)

	calls := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}

	first, hit, err := c.GetOrCompute(ctx, []string{"pcr"}, 1, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(ctx, []string{"pcr"}, 1, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGetOrComputeCollapsesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	c := New(newMemStore(), "csv", time.Minute, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult(), nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(ctx, []string{"pcr"}, 1, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := New(newMemStore(), "csv", time.Minute, nil)
	boom := errors.New("scan failed")

	_, _, err := c.GetOrCompute(ctx, []string{"pcr"}, 1, func(context.Context) (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(ctx, []string{"pcr"}, 1)
	assert.False(t, ok)
}

func TestGetOrComputeSurvivesFirstCallerCancel(t *testing.T) {
	c := New(newMemStore(), "csv", time.Minute, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return sampleResult(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, []string{"pcr"}, 1, compute)
		firstErr <- err
	}()
	<-started

	secondDone := make(chan *executor.SearchResult, 1)
	go func() {
		result, _, err := c.GetOrCompute(context.Background(), []string{"pcr"}, 1, compute)
		assert.NoError(t, err)
		secondDone <- result
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case result := <-secondDone:
		require.NotNil(t, result)
		assert.Equal(t, sampleResult().Results, result.Results)
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never received the shared result")
	}
	assert.Equal(t, int32(1), calls.Load())

	_, ok := c.Get(context.Background(), []string{"pcr"}, 1)
	assert.True(t, ok)
}

func TestGetOrComputeBoundsSharedScan(t *testing.T) {
	c := New(newMemStore(), "csv", time.Minute, nil).WithComputeTimeout(20 * time.Millisecond)

	_, _, err := c.GetOrCompute(context.Background(), []string{"pcr"}, 1, func(ctx context.Context) (*executor.SearchResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithComputeTimeoutIgnoresNonPositive(t *testing.T) {
	c := New(newMemStore(), "csv", time.Minute, nil).WithComputeTimeout(0)
	assert.Equal(t, DefaultComputeTimeout, c.computeTimeout)
}

func TestStoreFailureIsAMiss(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")
	c := New(store, "csv", time.Minute, nil)

	res, hit, err := c.GetOrCompute(context.Background(), []string{"pcr"}, 1, func(context.Context) (*executor.SearchResult, error) {
		return sampleResult(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, res.Results, 1)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(newMemStore(), "csv", time.Minute, nil)
	c.Set(ctx, []string{"pcr"}, 1, sampleResult())
	c.Set(ctx, []string{"chain"}, 1, sampleResult())

	deleted, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	_, ok := c.Get(ctx, []string{"pcr"}, 1)
	assert.False(t, ok)
}

func TestCommaKeywordDoesNotShareEntry(t *testing.T) {
	ctx := context.Background()
	qc := New(newMemStore(), "csv", time.Minute, nil)

	_, _, err := qc.GetOrCompute(ctx, []string{"2,3-dimethyl"}, 0, func(context.Context) (*executor.SearchResult, error) {
		return sampleResult(), nil
	})
	require.NoError(t, err)

	empty := &executor.SearchResult{Keywords: []string{"2", "3-dimethyl"}}
	result, hit, err := qc.GetOrCompute(ctx, []string{"2", "3-dimethyl"}, 0, func(context.Context) (*executor.SearchResult, error) {
		return empty, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, result.Results)
}

func TestBuildKey(t *testing.T) {
	c := New(newMemStore(), "csv", time.Minute, nil)

	assert.Equal(t, c.buildKey([]string{"pcr", "chain"}, 2), c.buildKey([]string{"chain", "pcr"}, 2))
	assert.NotEqual(t, c.buildKey([]string{"pcr"}, 2), c.buildKey([]string{"pcr"}, 3))
	assert.NotEqual(t, c.buildKey([]string{"pcr"}, 2), c.buildKey([]string{"pcr", "pcr"}, 2))
	assert.NotEqual(t, c.buildKey([]string{"pcr"}, 2), c.buildKey([]string{"PCR"}, 2))
	assert.NotEqual(t, c.buildKey([]string{"2,3-dimethyl"}, 0), c.buildKey([]string{"2", "3-dimethyl"}, 0))
	assert.NotEqual(t, c.buildKey([]string{"a|b"}, 0), c.buildKey([]string{"a", "b"}, 0))

	other := New(newMemStore(), "postgres", time.Minute, nil)
	assert.NotEqual(t, c.buildKey([]string{"pcr"}, 2), other.buildKey([]string{"pcr"}, 2))
	assert.True(t, strings.HasPrefix(c.buildKey([]string{"pcr"}, 2), keyPrefix))
}
