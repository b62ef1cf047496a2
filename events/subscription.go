package events

import (
	"context"
	"sync"
)

// DefaultBuffer is the channel capacity of a new subscription
const DefaultBuffer = 16

// Subscription receives values of type T from a Hub
type Subscription[T any] struct {
	ch     chan T
	done   chan struct{}
	hub    *Hub[T]
	cancel context.CancelFunc
	once   sync.Once
	mu     sync.Mutex
}

// Chan returns a read-only channel for self-handling events.
func (s *Subscription[T]) Chan() <-chan T { return s.ch }

// Cancel unsubscribes and closes the channel. Safe for repeated calls.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(s.done)
		s.hub.unsubscribe(s.ch)
	})
}

// Watch starts a goroutine that calls cb for each value.
// When parentCtx finishes, the subscription is automatically cancelled.
func (s *Subscription[T]) Watch(parentCtx context.Context, cb func(T)) *Subscription[T] {
	ctx, cancel := context.WithCancel(parentCtx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer s.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-s.ch:
				if !ok {
					return
				}
				cb(v)
			}
		}
	}()

	return s
}

// Hub fans values out to every subscriber
type Hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]chan struct{}
	buffer      int
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		subscribers: make(map[chan T]chan struct{}),
		buffer:      DefaultBuffer,
	}
}

func (h *Hub[T]) Subscribe() *Subscription[T] {
	ch := make(chan T, h.buffer)
	done := make(chan struct{})

	h.mu.Lock()
	h.subscribers[ch] = done
	h.mu.Unlock()

	return &Subscription[T]{ch: ch, done: done, hub: h}
}

func (h *Hub[T]) unsubscribe(ch chan T) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions
func (h *Hub[T]) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Emit sends v to all subscribers, skipping any whose channel is full.
func (h *Hub[T]) Emit(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- v:
		default:
		}
	}
}

// Publish sends v to all subscribers, waiting for room in each channel
// until ctx is done. Subscriptions cancelled while waiting are skipped.
func (h *Hub[T]) Publish(ctx context.Context, v T) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub, done := range h.subscribers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		case sub <- v:
		}
	}
	return nil
}
