package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/resilience"
)

func TestGuardFailsFastWhileOpen(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.fail = errors.New("connection reset")
	guarded := Guard(store, resilience.NewBreaker("redis", 1, time.Hour))

	_, _, err := guarded.Get(ctx, "k")
	require.Error(t, err)

	store.fail = nil
	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	_, _, err = guarded.Get(ctx, "k")
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.ErrorIs(t, guarded.Set(ctx, "k2", []byte("v"), 0), resilience.ErrBreakerOpen)

	n, err := guarded.FlushByPattern(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGuardedCacheFallsBackToCompute(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.fail = errors.New("timeout")
	qc := New(Guard(store, resilience.NewBreaker("redis", 1, time.Hour)), "csv:test", time.Minute, nil)

	calls := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}
	for range 3 {
		result, hit, err := qc.GetOrCompute(ctx, []string{"pcr"}, 1, compute)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 1, result.Matched)
	}
	assert.Equal(t, 3, calls)
	_, misses := qc.Stats()
	assert.Equal(t, int64(3), misses)
}
