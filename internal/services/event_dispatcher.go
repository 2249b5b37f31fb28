package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

/*
EventDispatcher is a worker pool in front of a slow EventSink. The hub
hands events over without waiting on the network: Publish only enqueues,
and a fixed set of workers drains the queue into the sink.

A bounded queue gives backpressure without blocking collaborators. When
the queue is full the event is dropped and counted. With one worker,
events reach the sink in the order they were published.
*/

var (
	ErrQueueFull         = errors.New("event queue full")
	ErrDispatcherStopped = errors.New("event dispatcher stopped")
)

const defaultPublishTimeout = 5 * time.Second

// EventJob is one queued event
type EventJob struct {
	SessionID string
	Event     any
}

type EventDispatcher struct {
	sink    EventSink
	logger  zerolog.Logger
	timeout time.Duration

	jobs    chan EventJob
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	dropped atomic.Int64
}

// NewEventDispatcher creates the pool but does not start it
func NewEventDispatcher(sink EventSink, workers, queueSize int, logger zerolog.Logger) *EventDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &EventDispatcher{
		sink:    sink,
		logger:  logger,
		timeout: defaultPublishTimeout,
		jobs:    make(chan EventJob, queueSize),
		workers: workers,
	}
}

// Start spawns the workers
func (d *EventDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info().Int("workers", d.workers).Int("queue", cap(d.jobs)).Msg("event dispatcher started")
}

func (d *EventDispatcher) worker(id int) {
	defer d.wg.Done()

	// range drains whatever is queued once Shutdown closes the channel
	for job := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Publish(ctx, job.SessionID, job.Event); err != nil {
			d.logger.Warn().Err(err).
				Int("worker", id).
				Str("session_id", job.SessionID).
				Msg("failed to publish event")
		}
		cancel()
	}
}

// Publish enqueues event without blocking. The context is not used for
// delivery; each delivery gets its own timeout.
func (d *EventDispatcher) Publish(_ context.Context, sessionID string, event any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.jobs <- EventJob{SessionID: sessionID, Event: event}:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits until the queue is drained
func (d *EventDispatcher) Shutdown() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Int64("dropped", d.dropped.Load()).Msg("event dispatcher stopped")
}

// QueueLength returns the number of pending events
func (d *EventDispatcher) QueueLength() int {
	return len(d.jobs)
}

// Dropped returns how many events were discarded because the queue was full
func (d *EventDispatcher) Dropped() int64 {
	return d.dropped.Load()
}
