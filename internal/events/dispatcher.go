package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/communiconnect/backend/internal/models"
)

// Sink delivers a single event to its destination.
type Sink interface {
	Publish(ctx context.Context, event models.FriendshipEvent) error
}

// FailureObserver is notified when an event could not be delivered.
type FailureObserver interface {
	ObservePublishFailure(eventType string)
}

// DispatcherConfig controls the queue and worker pool of a Dispatcher.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

// ErrDispatcherClosed is returned by Publish after Shutdown.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// ErrQueueFull is returned when the dispatcher cannot accept more events.
var ErrQueueFull = errors.New("event queue full")

// Dispatcher hands events to a Sink from a pool of background workers, so
// callers never wait on the broker.
type Dispatcher struct {
	sink     Sink
	observer FailureObserver
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan models.FriendshipEvent
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker pool. observer and logger may be nil.
func NewDispatcher(sink Sink, cfg DispatcherConfig, observer FailureObserver, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sink:     sink,
		observer: observer,
		logger:   logger,
		timeout:  cfg.PublishTimeout,
		jobs:     make(chan models.FriendshipEvent, cfg.QueueSize),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	return d
}

// Publish queues the event without blocking. It fails with ErrQueueFull when
// the buffer is exhausted. Enqueue errors are left to the caller; only
// delivery failures reach the observer. ctx is ignored since delivery runs
// on its own timeout.
func (d *Dispatcher) Publish(_ context.Context, event models.FriendshipEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- event:
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
		close(d.jobs)
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

	for event := range d.jobs {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event models.FriendshipEvent) {
	if d.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		d.recordFailure(event, err)
	}
}

func (d *Dispatcher) recordFailure(event models.FriendshipEvent, err error) {
	d.logger.Error("friendship event not delivered", "type", event.Type, "friendshipId", event.FriendshipID, "error", err)
	if d.observer != nil {
		d.observer.ObservePublishFailure(event.Type)
	}
}
