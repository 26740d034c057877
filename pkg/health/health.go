// Package health reports whether a search process can serve. Dependencies
// register checks; readiness fails only when a required one (the corpus) is
// down, while optional ones (Redis, Kafka, the snapshot database) merely
// degrade the report.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/resilience"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses so the report can keep the worst one.
func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// readyTimeout bounds a readiness check so one hung dependency cannot stall it.
const readyTimeout = 5 * time.Second

type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check), started: time.Now()}
}

// Register adds or replaces the check named name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run checks every dependency in parallel. The report carries the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	var (
		mu         sync.Mutex
		components = make(map[string]ComponentHealth, len(checks))
		g          errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			start := time.Now()
			result := check(ctx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			components[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, comp := range components {
		if comp.Status.severity() > overall.severity() {
			overall = comp.Status
		}
	}
	return Report{
		Status:     overall,
		Components: components,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// LiveHandler answers as long as the process runs.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 only when a required dependency is down. A
// degraded service keeps receiving traffic because searches still work
// without the cache or analytics.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		report := c.Run(ctx)
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

// PingCheck turns a ping into a Check. A failing optional dependency
// degrades the service, a failing required one takes it down. A nil ping
// means the dependency is not configured.
func PingCheck(ping func(ctx context.Context) error, optional bool) Check {
	failed := StatusDown
	if optional {
		failed = StatusDegraded
	}
	return func(ctx context.Context) ComponentHealth {
		if ping == nil {
			return ComponentHealth{Status: failed, Message: "not configured"}
		}
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failed, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// BreakerCheck degrades the service while b is not closed.
func BreakerCheck(b *resilience.Breaker) Check {
	return func(ctx context.Context) ComponentHealth {
		if state := b.State(); state != resilience.BreakerClosed {
			return ComponentHealth{Status: StatusDegraded, Message: "breaker " + state.String()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
