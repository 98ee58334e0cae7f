package service

import "sync"

// EventBus is a simple fan-out pub/sub for effects produced outside a
// request, such as animation frames.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[chan Effect]struct{}
	closed bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Effect]struct{})}
}

// Publish sends an effect to all subscribers (non-blocking).
func (b *EventBus) Publish(e Effect) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives effects. The channel
// is closed by Unsubscribe or Close.
func (b *EventBus) Subscribe() chan Effect {
	ch := make(chan Effect, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Effect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscriber. Later subscriptions are closed immediately.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.closed = true
}
