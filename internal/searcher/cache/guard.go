package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/resilience"
)

// Guard wraps store so that after repeated failures cache calls fail fast
// instead of waiting on an unhealthy Redis. A miss (found=false) counts as
// success.
func Guard(store Store, b *resilience.Breaker) Store {
	return &guardedStore{store: store, breaker: b}
}

type guardedStore struct {
	store   Store
	breaker *resilience.Breaker
}

func (g *guardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := g.breaker.Do(func() error {
		var err error
		data, found, err = g.store.Get(ctx, key)
		return err
	})
	return data, found, err
}

func (g *guardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

// FlushByPattern bypasses the breaker so operators can always invalidate.
func (g *guardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.store.FlushByPattern(ctx, pattern)
}
