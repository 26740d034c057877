// Package validator checks search requests before any corpus work is done
// and reports every problem per field.
package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
)

const maxKeywordLength = 256

// Limits bounds what a single request may ask for. Zero disables a bound.
type Limits struct {
	MaxKeywords int
	MaxResults  int
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateSearchRequest checks keywords, threshold and limit. An empty
// keyword list is valid and yields an empty result.
func ValidateSearchRequest(req *searcher.SearchRequest, limits Limits) error {
	errs := make(map[string]string)

	if limits.MaxKeywords > 0 && len(req.Keywords) > limits.MaxKeywords {
		errs["keywords"] = fmt.Sprintf("at most %d keywords allowed", limits.MaxKeywords)
	}
	for i, kw := range req.Keywords {
		field := fmt.Sprintf("keywords[%d]", i)
		switch {
		case strings.TrimSpace(kw) == "":
			errs[field] = "keyword must not be empty"
		case len(kw) > maxKeywordLength:
			errs[field] = fmt.Sprintf("keyword must be at most %d bytes", maxKeywordLength)
		}
	}
	if req.MinFrequency != nil && *req.MinFrequency < 0 {
		errs["min_frequency"] = "min_frequency must not be negative"
	}
	if req.Limit < 0 {
		errs["limit"] = "limit must not be negative"
	} else if limits.MaxResults > 0 && req.Limit > limits.MaxResults {
		errs["limit"] = fmt.Sprintf("limit must be at most %d", limits.MaxResults)
	}
	if len(req.ID) > 255 {
		errs["id"] = "id must be at most 255 characters"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
