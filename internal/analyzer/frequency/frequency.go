// Package frequency builds per-document word frequency tables.
package frequency

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analyzer/tokenizer"
)

// Table maps a lowercase word to its occurrence count in one document.
// Stopwords never appear as keys.
type Table map[string]int

// Count drops stopwords from tokens and tallies the remaining words.
// Empty input yields an empty, non-nil table.
func Count(tokens []string, stop *stopwords.Set) Table {
	table := make(Table, len(tokens)/2)
	for _, tok := range tokens {
		if stop.Contains(tok) {
			continue
		}
		table[tok]++
	}
	return table
}

// Lookup returns the count for word, 0 when absent.
func (t Table) Lookup(word string) int {
	return t[word]
}

// Total is the number of non-stopword tokens the table was built from.
func (t Table) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Sum adds up the counts of every keyword. Repeated keywords are counted
// once per occurrence in the list.
func (t Table) Sum(keywords []string) int {
	sum := 0
	for _, kw := range keywords {
		sum += t[kw]
	}
	return sum
}

// Analyzer chains tokenization and counting for one document.
type Analyzer struct {
	tokenizer tokenizer.Tokenizer
	stopwords *stopwords.Set
}

func NewAnalyzer(tok tokenizer.Tokenizer, stop *stopwords.Set) *Analyzer {
	return &Analyzer{tokenizer: tok, stopwords: stop}
}

// Analyze returns the frequency table of text.
func (a *Analyzer) Analyze(text string) (Table, error) {
	tokens, err := a.tokenizer.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("analyzing text: %w", err)
	}
	return Count(tokens, a.stopwords), nil
}

// Stopwords exposes the injected stopword set.
func (a *Analyzer) Stopwords() *stopwords.Set {
	return a.stopwords
}
