// Package analytics records keyword searches as events, ships them to Kafka
// and aggregates them into usage statistics.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventFailed     EventType = "search_failed"
)

// Origin names the surface a search came in through.
type Origin string

const (
	OriginHTTP   Origin = "http"
	OriginWorker Origin = "worker"
	OriginCLI    Origin = "cli"
)

type SearchEvent struct {
	Type         EventType `json:"type"`
	Origin       Origin    `json:"origin"`
	Keywords     []string  `json:"keywords"`
	MinFrequency int       `json:"min_frequency"`
	Scanned      int       `json:"scanned"`
	Skipped      int       `json:"skipped"`
	Matched      int       `json:"matched"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// Classify picks the event type from the outcome of a search.
func Classify(err error, cacheHit bool, returned int) EventType {
	switch {
	case err != nil:
		return EventFailed
	case returned == 0:
		return EventZeroResult
	case cacheHit:
		return EventCacheHit
	default:
		return EventSearch
	}
}
