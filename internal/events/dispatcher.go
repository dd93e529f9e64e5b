package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrUnknownEvent is returned when publishing a type outside domain.EventTypes.
var ErrUnknownEvent = errors.New("events: unknown event type")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher routes engine events to in-process handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler for the given types, or for every type when
	// none are given. The returned func removes the registration.
	Subscribe(handler EventHandler, types ...domain.EventType) (unsubscribe func())
}

type registration struct {
	id      uint64
	handler EventHandler
}

// inMemoryDispatcher runs handlers synchronously on the publisher's goroutine,
// in subscription order.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[domain.EventType][]registration
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[domain.EventType][]registration),
	}
}

// Publish invokes every handler for event.Type. A failing or panicking
// handler does not stop the others; their errors are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	if !domain.ValidEventType(string(event.Type)) {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
	d.mu.RLock()
	regs := append([]registration(nil), d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if err := invoke(ctx, reg.handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: handler for %s panicked: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}

func (d *inMemoryDispatcher) Subscribe(handler EventHandler, types ...domain.EventType) func() {
	if len(types) == 0 {
		types = domain.EventTypes
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	for _, t := range types {
		d.listeners[t] = append(d.listeners[t], registration{id: id, handler: handler})
	}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(id, types) })
	}
}

func (d *inMemoryDispatcher) remove(id uint64, types []domain.EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range types {
		regs := d.listeners[t]
		kept := regs[:0:0]
		for _, reg := range regs {
			if reg.id != id {
				kept = append(kept, reg)
			}
		}
		d.listeners[t] = kept
	}
}
