package aggregator

import "sync"

// Accumulator maps a document identifier to its running keyword score. A
// document enters the map only when it contributes a positive count, so
// documents without any match are never recorded. Safe for concurrent use.
type Accumulator struct {
	mu     sync.Mutex
	scores map[string]int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{scores: make(map[string]int)}
}

// Add increases docID's score by n. Non-positive n is ignored.
func (a *Accumulator) Add(docID string, n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.scores[docID] += n
	a.mu.Unlock()
}

// Get returns docID's score and whether it was recorded.
func (a *Accumulator) Get(docID string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.scores[docID]
	return n, ok
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.scores)
}

// Snapshot returns a copy of the scores.
func (a *Accumulator) Snapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.scores))
	for id, n := range a.scores {
		out[id] = n
	}
	return out
}
