// Package event provides the typed publish/subscribe registry every component owns.
//
// A Bus belongs to exactly one producer. Handlers run synchronously on the
// goroutine that calls Publish, in subscription order. Handlers added while a
// Publish is in flight are not called for that value; handlers removed while a
// Publish is in flight are skipped if they have not run yet.
package event

import "sync"

// ID identifies one subscription on one Bus.
type ID uint64

type entry[T any] struct {
	id ID
	fn func(T)
}

type Bus[T any] struct {
	mu       sync.Mutex
	next     ID
	handlers []entry[T]
	live     map[ID]struct{}
}

// Subscribe registers fn and returns the ID needed to remove it.
func (b *Bus[T]) Subscribe(fn func(T)) ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live == nil {
		b.live = make(map[ID]struct{})
	}
	b.next++
	b.handlers = append(b.handlers, entry[T]{id: b.next, fn: fn})
	b.live[b.next] = struct{}{}
	return b.next
}

// Unsubscribe removes a handler. It reports false for unknown or already removed IDs.
func (b *Bus[T]) Unsubscribe(id ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[id]; !ok {
		return false
	}
	delete(b.live, id)
	for i, h := range b.handlers {
		if h.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			break
		}
	}
	return true
}

func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	snapshot := make([]entry[T], len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()

	for _, h := range snapshot {
		if !b.isLive(h.id) {
			continue
		}
		h.fn(v)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Clear drops every subscription.
func (b *Bus[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
	b.live = nil
}

func (b *Bus[T]) isLive(id ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[id]
	return ok
}
