// Package tokenizer lowercases document text and splits it into word tokens.
// Tokens keep their order and duplicates; pure punctuation is treated as a
// separator and never emitted.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

const (
	KindProse  = "prose"
	KindSimple = "simple"
)

// Tokenizer turns raw text into lowercase word tokens.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// New returns the tokenizer registered under kind. An empty kind selects
// the prose tokenizer.
func New(kind string) (Tokenizer, error) {
	switch strings.ToLower(kind) {
	case "", KindProse:
		return Prose{}, nil
	case KindSimple:
		return Simple{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (want %s or %s)", kind, KindProse, KindSimple)
	}
}

// Prose segments words with the Penn Treebank rules of prose: contractions
// are split ("don't" -> "do", "n't") and hyphenated words stay whole, the
// same boundaries conventional English word segmentation produces.
type Prose struct{}

func (Prose) Tokenize(text string) ([]string, error) {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tokenizing text: %w", err)
	}
	raw := doc.Tokens()
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if isWord(tok.Text) {
			tokens = append(tokens, tok.Text)
		}
	}
	return tokens, nil
}

// Simple splits on every rune that is not a letter or digit, keeping
// apostrophes and hyphens that sit inside a word.
type Simple struct{}

func (Simple) Tokenize(text string) ([]string, error) {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "'-")
		if isWord(word) {
			tokens = append(tokens, word)
		}
	}
	return tokens, nil
}

// isWord reports whether tok contains at least one letter or digit.
func isWord(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
