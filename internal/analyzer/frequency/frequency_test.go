package frequency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/tokenizer"
)

func TestCount(t *testing.T) {
	stop := stopwords.New("the", "of", "and")
	table := Count([]string{"the", "virus", "of", "the", "virus", "and", "host"}, stop)

	assert.Equal(t, Table{"virus": 2, "host": 1}, table)
	assert.Equal(t, 3, table.Total())
	assert.Zero(t, table.Lookup("the"))
}

func TestCountEmpty(t *testing.T) {
	stop := stopwords.New("the")
	for _, tokens := range [][]string{nil, {}, {"the", "the"}} {
		table := Count(tokens, stop)
		require.NotNil(t, table)
		assert.Empty(t, table)
	}
}

func TestSum(t *testing.T) {
	table := Table{"pcr": 3, "chain": 1}
	assert.Equal(t, 4, table.Sum([]string{"pcr", "chain", "polymerase"}))
	assert.Equal(t, 7, table.Sum([]string{"pcr", "pcr", "chain"}))
	assert.Zero(t, table.Sum(nil))
	assert.Zero(t, table.Sum([]string{"PCR"}))
}

// Properties: no stopword survives, and the counts add up to the number of
// non-stopword tokens.
func TestAnalyzeInvariants(t *testing.T) {
	stop := englishStopwords(t)
	analyzer := NewAnalyzer(tokenizer.Simple{}, stop)
	texts := []string{
		"RT PCR test uses polymerase chain reaction",
		"no relevant content here",
		"The spike protein binds to the ACE2 receptor, and the receptor is abundant.",
		"",
	}
	for _, text := range texts {
		tokens, err := tokenizer.Simple{}.Tokenize(text)
		require.NoError(t, err)
		nonStop := 0
		for _, tok := range tokens {
			if !stop.Contains(tok) {
				nonStop++
			}
		}

		table, err := analyzer.Analyze(text)
		require.NoError(t, err)
		for word := range table {
			assert.False(t, stop.Contains(word), "stopword %q in table", word)
		}
		assert.Equal(t, nonStop, table.Total(), text)
	}
}

func TestAnalyzeExample(t *testing.T) {
	analyzer := NewAnalyzer(tokenizer.Prose{}, englishStopwords(t))
	table, err := analyzer.Analyze("RT PCR test uses polymerase chain reaction")
	require.NoError(t, err)
	assert.Equal(t, 3, table.Sum([]string{"pcr", "polymerase", "chain"}))

	table, err = analyzer.Analyze("no relevant content here")
	require.NoError(t, err)
	assert.Equal(t, Table{"relevant": 1, "content": 1}, table)
}

type failingTokenizer struct{}

func (failingTokenizer) Tokenize(string) ([]string, error) {
	return nil, errors.New("model unavailable")
}

func TestAnalyzePropagatesTokenizerError(t *testing.T) {
	_, err := NewAnalyzer(failingTokenizer{}, stopwords.New("a")).Analyze("text")
	assert.ErrorContains(t, err, "model unavailable")
}

func englishStopwords(tb testing.TB) *stopwords.Set {
	tb.Helper()
	stop, err := stopwords.Load(stopwords.LanguageEnglish, "")
	require.NoError(tb, err)
	return stop
}
