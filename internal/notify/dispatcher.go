package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sink delivers a single event to its destination.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// DispatcherConfig controls the concurrency characteristics of the dispatcher.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	DeliverTimeout time.Duration
}

// Dispatcher asynchronously hands events to a sink from a bounded queue.
// Notify never waits for delivery, so a slow or failing sink cannot hold up
// the relationship operation that produced the event.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	wg     sync.WaitGroup
}

var (
	// ErrDispatcherClosed is returned by Notify after Shutdown.
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
	// ErrQueueFull is returned when the queue has no room for the event.
	ErrQueueFull = errors.New("notification queue full")
)

// NewDispatcher constructs a dispatcher and starts its workers.
func NewDispatcher(sink Sink, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sink:    sink,
		logger:  logger,
		timeout: cfg.DeliverTimeout,
		events:  make(chan Event, cfg.QueueSize),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	return d
}

// Notify queues the event for delivery without blocking on a full queue.
func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for event := range d.events {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	if d.sink == nil {
		d.logger.Error("notification dispatcher missing sink", "event", event.Name, "requestId", event.RequestID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, event); err != nil {
		d.logger.Error("notification delivery failed", "event", event.Name, "requestId", event.RequestID, "error", err)
	}
}
