package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/frequency"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/aggregator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/ranker"
)

var keywords = []string{"rt", "pcr", "polymerase", "chain"}

func buildCorpus(n int) corpus.Slice {
	texts := []string{sampleTexts["short"], sampleTexts["medium"], "No keywords in this abstract at all."}
	docs := make(corpus.Slice, n)
	for i := range docs {
		docs[i] = corpus.Document{ID: fmt.Sprintf("doc-%05d", i), Text: texts[i%len(texts)]}
	}
	return docs
}

// BenchmarkSearchWorkers measures a full corpus scan at different pool sizes.
func BenchmarkSearchWorkers(b *testing.B) {
	docs := buildCorpus(2000)
	analyzer := frequency.NewAnalyzer(tokenizer.Prose{}, englishStopwords(b))
	ctx := context.Background()

	for _, workers := range []int{1, 4, 16} {
		exec := executor.New(aggregator.New(analyzer, aggregator.Options{Workers: workers}), 0, nil)
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.Search(ctx, docs.Documents(ctx), keywords, 2); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRank(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	scores := make(map[string]int, 50000)
	for i := 0; i < 50000; i++ {
		scores[fmt.Sprintf("doc-%05d", i)] = rng.Intn(20) + 1
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ranker.Rank(scores, 2)
	}
}
