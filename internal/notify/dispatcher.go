package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
)

const sinkTimeout = 5 * time.Second

// Sink delivers one order event to an outside collaborator.
type Sink interface {
	Name() string
	Send(ctx context.Context, event models.OrderEvent) error
}

// Dispatcher fans committed order events out to the sinks on a fixed pool of
// workers. Publish never blocks the request that produced the event; when the
// queue is full the event is dropped and counted.
type Dispatcher struct {
	queue   chan models.OrderEvent
	sinks   []Sink
	workers int
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg config.NotifyConfig, log *logger.Logger, sinks ...Sink) *Dispatcher {
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		queue:   make(chan models.OrderEvent, size),
		sinks:   sinks,
		workers: workers,
		logger:  log,
	}
}

// Start launches the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.LogProcess("NOTIFY", fmt.Sprintf("Dispatcher started with %d workers and %d sinks", d.workers, len(d.sinks)))
}

func (d *Dispatcher) Publish(event models.OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.NotificationDropped("closed")
		return
	}
	select {
	case d.queue <- event:
		metrics.SetNotifyQueueDepth(len(d.queue))
	default:
		metrics.NotificationDropped("queue_full")
		d.logger.Warn("NOTIFY", fmt.Sprintf("Queue full, dropped %s for order %s", event.Type, event.OrderID))
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		metrics.SetNotifyQueueDepth(len(d.queue))
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event models.OrderEvent) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := sink.Send(ctx, event)
		cancel()
		if err != nil {
			metrics.NotificationDropped(sink.Name())
			d.logger.Warn("NOTIFY", fmt.Sprintf("%s: %s for order %s not delivered: %v", sink.Name(), event.Type, event.OrderID, err))
		}
	}
}

// Close stops accepting events and waits until queued ones are delivered or
// ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
