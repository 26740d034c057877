// Package worker answers search requests arriving on Kafka. Each request is
// run through the search service and the response, success or failure, is
// published to the results topic under the request ID.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/logger"
)

// SearchService is implemented by *service.Service.
type SearchService interface {
	Search(ctx context.Context, req *searcher.SearchRequest, origin analytics.Origin) (*searcher.SearchResponse, error)
}

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Worker struct {
	service   SearchService
	publisher Publisher
	logger    *slog.Logger
}

func New(service SearchService, publisher Publisher) *Worker {
	return &Worker{
		service:   service,
		publisher: publisher,
		logger:    slog.Default().With("component", "search-worker"),
	}
}

// Handle is the kafka.MessageHandler for the requests topic. Requests that
// fail validation or the scan are answered with an error response; only a
// failure to publish leaves the message uncommitted.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	req, err := kafka.DecodeJSON[searcher.SearchRequest](msg.Value)
	if err != nil {
		w.logger.Error("failed to decode search request",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return err
	}
	if req.ID == "" {
		req.ID = string(msg.Key)
	}
	requestID := msg.RequestID
	if requestID == "" {
		requestID = req.ID
	}
	ctx = logger.WithRequestID(ctx, requestID)
	log := logger.FromContext(ctx).With("component", "search-worker")

	resp, err := w.service.Search(ctx, &req, analytics.OriginWorker)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("search %s interrupted: %w", req.ID, err)
		}
		log.Warn("search request failed", "id", req.ID, "error", err)
		resp = &searcher.SearchResponse{
			ID:       req.ID,
			Keywords: req.Keywords,
			Error:    describe(err),
		}
	}

	if err := w.publisher.Publish(ctx, kafka.Event{Key: req.ID, Value: resp, RequestID: requestID}); err != nil {
		return fmt.Errorf("publishing response %s: %w", req.ID, err)
	}
	log.Info("search request answered", "id", req.ID, "total", resp.Total, "error", resp.Error)
	return nil
}

func describe(err error) string {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return "validation failed: " + verr.Error()
	}
	return err.Error()
}
