// Package handler exposes keyword search over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
)

const maxBodyBytes = 1 << 20

type SearchService interface {
	Search(ctx context.Context, req *searcher.SearchRequest, origin analytics.Origin) (*searcher.SearchResponse, error)
}

type Handler struct {
	service SearchService
	cache   *cache.QueryCache
	logger  *slog.Logger
}

// New builds the handler. queryCache may be nil when Redis is unavailable.
func New(service SearchService, queryCache *cache.QueryCache) *Handler {
	return &Handler{
		service: service,
		cache:   queryCache,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Search handles POST /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req searcher.SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := h.service.Search(r.Context(), &req, analytics.OriginHTTP)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		status := apperrors.HTTPStatusCode(err)
		log.Error("search request failed", "status", status, "error", err)
		message := "search failed"
		if status < http.StatusInternalServerError {
			message = err.Error()
		}
		h.writeError(w, status, message)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
