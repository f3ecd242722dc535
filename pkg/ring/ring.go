// Package ring keeps the most recent N entries of an append-only log.
package ring

import "sync"

// Buffer is safe for concurrent use. A capacity <= 0 keeps every entry.
type Buffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	dropped  uint64
}

func New[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{capacity: capacity}
}

// Push appends v and evicts the oldest entries beyond capacity.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, v)
	if b.capacity > 0 && len(b.items) > b.capacity {
		over := len(b.items) - b.capacity
		clear(b.items[:over])
		b.items = append(b.items[:0], b.items[over:]...)
		b.dropped += uint64(over)
	}
}

// Items returns a copy, oldest first.
func (b *Buffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Dropped reports how many entries were evicted since creation.
func (b *Buffer[T]) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
