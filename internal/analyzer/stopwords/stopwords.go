// Package stopwords provides the immutable set of common words excluded from
// keyword frequency counting. A Set is built once at startup and passed to
// the analyzer; nothing in this package holds mutable global state.
package stopwords

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
)

//go:embed english.txt
var englishList []byte

// LanguageEnglish is the only supported stopword language.
const LanguageEnglish = "english"

// Set is a read-only set of lowercase stopwords. It is safe for concurrent
// use once constructed.
type Set struct {
	words map[string]struct{}
}

// New builds a Set from explicit words, lowercasing each one.
func New(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Load returns the stopword set for language. An empty path selects the
// embedded list; otherwise the file at path is read, one word per line.
// Any failure wraps ErrInitialization.
func Load(language, path string) (*Set, error) {
	if language != "" && !strings.EqualFold(language, LanguageEnglish) {
		return nil, fmt.Errorf("%w: unsupported stopword language %q", apperrors.ErrInitialization, language)
	}
	if path == "" {
		return Parse(bytes.NewReader(englishList))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening stopword list: %v", apperrors.ErrInitialization, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one word per line. Blank lines and lines starting with '#' are
// ignored. An empty list is an initialization error.
func Parse(r io.Reader) (*Set, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading stopword list: %v", apperrors.ErrInitialization, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: stopword list is empty", apperrors.ErrInitialization)
	}
	return New(words...), nil
}

func (s *Set) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the stopwords in sorted order.
func (s *Set) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
