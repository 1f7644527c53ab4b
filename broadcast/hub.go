package broadcast

import (
	"context"
	"errors"
	"sync"
)

const subscriberBuffer = 16

// Hub fans signals out to in-process subscribers. Slow subscribers drop
// signals rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Signal
	next   int
	closed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Signal)}
}

// Publish delivers sig to every current subscriber.
func (h *Hub) Publish(_ context.Context, sig Signal) error {
	if sig.Kind != KindLogin && sig.Kind != KindLogout {
		return errors.New("unknown signal kind")
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for _, ch := range h.subs {
		select {
		case ch <- sig:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Signal, error) {
	ch := make(chan Signal, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(id)
	}()
	return ch, nil
}

// Close closes every subscriber channel.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	return nil
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
