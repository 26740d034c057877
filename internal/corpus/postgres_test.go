package corpus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/postgres"
)

// skipIfNoPostgres skips unless KFS_TEST_POSTGRES_HOST points at a
// disposable database.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	host := os.Getenv("KFS_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("skipping: KFS_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	cfg.Database = "keywordsearch_test"
	cfg.ConnMaxLifetime = time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewPostgresStore(db, true)
	require.NoError(t, store.Migrate(ctx))

	csvSrc := NewCSVSource(writeCSV(t, metadataCSV), CSVOptions{SampleEvery: 1})
	n, err := store.Import(ctx, csvSrc.Records(ctx))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	docs, errs := collect(t, store)
	require.Empty(t, errs)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"d1", "d2", "d5"}, ids)

	md, err := store.Lookup(ctx, []string{"d1", "d3"})
	require.NoError(t, err)
	assert.Equal(t, "RT-PCR paper", md["d1"].Title)
	assert.Equal(t, "", md["d3"].Abstract)
}
