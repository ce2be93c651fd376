package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// asyncDispatcher runs handlers off the publisher's goroutine so dispatch
// never blocks, delays, or reverts the transition that produced the event.
type asyncDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	inflight  sync.WaitGroup
	logger    *zap.Logger
}

// NewAsyncDispatcher creates a fire-and-forget dispatcher.
func NewAsyncDispatcher(logger *zap.Logger) *asyncDispatcher {
	return &asyncDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish schedules handlers for the given event and returns immediately.
// Handler errors and panics are logged, never propagated.
func (d *asyncDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("event handler panicked",
					zap.String("event_type", string(event.Type)),
					zap.Any("panic", r))
			}
		}()
		// detached from the request context: the commit already happened
		deliveryCtx := context.WithoutCancel(ctx)
		for _, handler := range handlers {
			if err := handler(deliveryCtx, event); err != nil {
				d.logger.Warn("event handler failed",
					zap.String("event_type", string(event.Type)),
					zap.String("request_id", event.RequestID),
					zap.Error(err))
			}
		}
	}()
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *asyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Drain blocks until all in-flight deliveries finish. Used on shutdown.
func (d *asyncDispatcher) Drain() {
	d.inflight.Wait()
}
