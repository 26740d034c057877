package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/kafka"
)

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers search events and publishes them in batches, flushing
// when a batch fills up or the flush interval elapses. Track never blocks:
// events are dropped when the buffer is full.
type Collector struct {
	publisher     Publisher
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	// mu guards eventCh against a send racing its close.
	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan SearchEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing whatever is buffered.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafkaEvent(event))
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, c.drain(batch))
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues event for publishing. Events tracked after Close are
// dropped.
func (c *Collector) Track(event SearchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. It is safe to
// call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.waitDone()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.waitDone()
}

// waitDone returns the loop's done channel, or a closed one when Start was
// never called.
func (c *Collector) waitDone() <-chan struct{} {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if started {
		return c.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafkaEvent(event))
		default:
			return batch
		}
	}
}

// flush publishes batch and returns an empty slice to reuse. A failed batch
// is logged and dropped.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events",
			"count", len(batch),
			"error", err,
		)
	} else {
		c.logger.Debug("analytics batch flushed", "count", len(batch))
	}
	return make([]kafka.Event, 0, c.batchSize)
}

func toKafkaEvent(event SearchEvent) kafka.Event {
	return kafka.Event{
		Key:       string(event.Origin),
		Value:     event,
		RequestID: event.RequestID,
	}
}
