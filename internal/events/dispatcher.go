package events

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// Sink delivers a hold event somewhere durable or visible.
type Sink interface {
	Publish(ctx context.Context, ev domain.HoldEvent) error
}

// Dispatcher hands events to a Sink from a single background goroutine so
// that hold transitions never wait on I/O. When the buffer is full the event
// is dropped and counted.
type Dispatcher struct {
	sink   Sink
	logger observability.Logger

	mu     sync.RWMutex
	queue  chan domain.HoldEvent
	closed bool
	done   chan struct{}
}

func NewDispatcher(sink Sink, buffer int, logger observability.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		queue:  make(chan domain.HoldEvent, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit enqueues ev without blocking. It reports whether ev was accepted.
func (d *Dispatcher) Emit(ev domain.HoldEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		observability.EventsDropped.Inc()
		d.logger.WithFields(map[string]interface{}{
			"hold_id": ev.HoldID,
			"type":    ev.Type,
		}).Warn("event buffer full, dropping hold event")
		return false
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "drain hold events")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		if err := d.sink.Publish(context.Background(), ev); err != nil {
			observability.EventPublishErrors.Inc()
			d.logger.WithError(err).WithFields(map[string]interface{}{
				"hold_id": ev.HoldID,
				"type":    ev.Type,
			}).Error("failed to publish hold event")
		}
	}
}

// LogSink writes events to the logger. It is the default when no broker is
// configured.
type LogSink struct {
	logger observability.Logger
}

func NewLogSink(logger observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, ev domain.HoldEvent) error {
	s.logger.WithFields(map[string]interface{}{
		"event_id":  ev.ID.String(),
		"type":      ev.Type,
		"hold_id":   ev.HoldID,
		"requester": ev.Requester,
		"seats":     len(ev.Seats),
	}).Info("hold event")
	return nil
}
