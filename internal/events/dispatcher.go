package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher decouples mutation handlers from notification delivery.
// Publish must never block the mutation that produced the event, and a
// failing handler must never surface back to the caller.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// queueDispatcher hands events to a fixed pool of worker goroutines over a
// buffered queue.
type queueDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler

	queue  chan Event
	closed bool
	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewQueueDispatcher starts workers consuming the event queue.
func NewQueueDispatcher(queueSize, workers int, logger *zap.Logger) *queueDispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 2
	}
	d := &queueDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, queueSize),
		logger:    logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Publish enqueues the event without blocking. When the queue is saturated
// or the dispatcher is already closed the event is dropped with a warning;
// delivery is best-effort.
func (d *queueDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return nil
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *queueDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close drains in-flight events and stops the workers. Publishes that race
// with Close are dropped rather than sent on the closed queue.
func (d *queueDispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *queueDispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		d.mu.RLock()
		handlers := append([]EventHandler{}, d.listeners[event.Type]...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(context.Background(), event); err != nil {
				d.logger.Warn("event handler failed",
					zap.String("type", string(event.Type)),
					zap.String("ticket_id", event.TicketID),
					zap.Error(err))
			}
		}
	}
}
