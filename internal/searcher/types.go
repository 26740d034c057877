// Package searcher defines the request and response payloads shared by the
// HTTP search API and the Kafka search worker.
package searcher

import (
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/executor"
)

// SearchRequest is the JSON body of POST /api/v1/search and the payload of
// keyword-search-requests messages. Keywords are matched verbatim against
// lowercased tokens, so callers should lowercase them.
type SearchRequest struct {
	ID           string   `json:"id,omitempty"`
	Keywords     []string `json:"keywords"`
	MinFrequency *int     `json:"min_frequency,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	WithMetadata bool     `json:"with_metadata,omitempty"`
}

// Threshold returns the requested minimum frequency or def when absent.
func (r *SearchRequest) Threshold(def int) int {
	if r.MinFrequency == nil {
		return def
	}
	return *r.MinFrequency
}

// SearchResponse is returned by the HTTP API and published to
// keyword-search-results. Rows is a prefix of the ranked list of at most
// Limit entries; Total counts every row that passed the threshold.
type SearchResponse struct {
	ID           string          `json:"id,omitempty"`
	Keywords     []string        `json:"keywords"`
	MinFrequency int             `json:"min_frequency"`
	Scanned      int             `json:"scanned"`
	Skipped      int             `json:"skipped"`
	Matched      int             `json:"matched"`
	Total        int             `json:"total"`
	Rows         []presenter.Row `json:"rows"`
	CacheHit     bool            `json:"cache_hit"`
	LatencyMs    int64           `json:"latency_ms"`
	Error        string          `json:"error,omitempty"`
}

// NewResponse builds a response from a search result and its presented rows.
func NewResponse(id string, result *executor.SearchResult, rows []presenter.Row) *SearchResponse {
	return &SearchResponse{
		ID:           id,
		Keywords:     result.Keywords,
		MinFrequency: result.MinFrequency,
		Scanned:      result.Scanned,
		Skipped:      result.Skipped,
		Matched:      result.Matched,
		Total:        len(result.Results),
		Rows:         rows,
	}
}
