package livefeed

import (
	"context"
	"sync"
)

// MemoryRegistry is a single-process registry.
type MemoryRegistry struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{}
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{subscribers: make(map[string]map[chan Message]struct{})}
}

// Publish delivers msg to the owner's subscribers. Slow subscribers whose
// buffer is full miss the message.
func (r *MemoryRegistry) Publish(_ context.Context, msg Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.subscribers[msg.OwnerID] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber. It is removed when ctx ends or Close is called.
func (r *MemoryRegistry) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	ch := make(chan Message, subscriberBuffer)

	r.mu.Lock()
	if r.subscribers[ownerID] == nil {
		r.subscribers[ownerID] = make(map[chan Message]struct{})
	}
	r.subscribers[ownerID][ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	closeFn := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers[ownerID], ch)
			if len(r.subscribers[ownerID]) == 0 {
				delete(r.subscribers, ownerID)
			}
			r.mu.Unlock()
			close(done)
			close(ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			closeFn()
		case <-done:
		}
	}()
	return &Subscription{C: ch, close: closeFn}, nil
}

// SubscriberCount returns the number of live subscribers for an owner.
func (r *MemoryRegistry) SubscriberCount(ownerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[ownerID])
}
