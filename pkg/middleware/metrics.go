// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, request timeouts, per-client rate limiting and the
// operator token guard.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/metrics"
)

// unrouted labels requests for paths a service does not serve, so scanners
// and typos cannot grow label cardinality.
const unrouted = "other"

var builtinRoutes = []string{"/health/live", "/health/ready", "/metrics"}

// Metrics records request count, latency and in-flight requests. routes are
// the API paths the service serves; health and scrape paths are always
// labelled, anything else is recorded as "other".
func Metrics(m *metrics.Metrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes)+len(builtinRoutes))
	for _, r := range routes {
		known[r] = struct{}{}
	}
	for _, r := range builtinRoutes {
		known[r] = struct{}{}
	}
	label := func(path string) string {
		if _, ok := known[path]; ok {
			return path
		}
		return unrouted
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := label(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusRecorder remembers the first status written. A handler that writes
// a body without a header answered 200.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status = code
		s.written = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}
