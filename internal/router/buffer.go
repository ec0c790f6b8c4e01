package router

import (
	"context"
	"sync"
)

// growThreshold is the fill percentage at which the ring doubles.
const growThreshold = 70

// GrowableBuffer is an unbounded FIFO between a producer and a writer. It is
// a ring that doubles at 70% fill so Send never blocks the producer.
// Consumers may block in Receive or select on Ready.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int // read position
	size   int
	closed bool

	ready chan struct{} // one pending wake-up
	done  chan struct{} // closed by Close

	// Stats
	received int64
	sent     int64
	resizes  int
}

// NewGrowableBuffer creates a new buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	return &GrowableBuffer[T]{
		ring:  make([]T, max(initialCapacity, 1)),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send appends an item. It returns false once the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}

	if (b.size+1)*100 >= len(b.ring)*growThreshold {
		b.grow()
	}
	b.ring[(b.head+b.size)%len(b.ring)] = item
	b.size++
	b.received++
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready fires after a Send. A consumer that drains until TryReceive fails
// and then waits on Ready never misses an item.
func (b *GrowableBuffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Done is closed by Close.
func (b *GrowableBuffer[T]) Done() <-chan struct{} {
	return b.done
}

// Receive blocks until an item is available or the buffer is closed and
// empty, in which case ok is false.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	return b.ReceiveContext(context.Background())
}

// ReceiveContext is Receive with cancellation.
func (b *GrowableBuffer[T]) ReceiveContext(ctx context.Context) (T, bool) {
	for {
		if item, ok := b.TryReceive(); ok {
			return item, true
		}
		select {
		case <-b.ready:
		case <-b.done:
			// Items sent before Close are still delivered.
			return b.TryReceive()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// TryReceive pops an item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// DrainTo pops up to limit items, or every item when limit <= 0.
func (b *GrowableBuffer[T]) DrainTo(limit int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = b.pop()
	}
	return out
}

// Close stops further sends. Buffered items remain receivable.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// Len returns the current number of items in the buffer.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the current capacity of the buffer.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.size,
		Capacity:      len(b.ring),
		TotalReceived: b.received,
		TotalSent:     b.sent,
		ResizeCount:   b.resizes,
	}
}

// pop removes the head item. Must be called with lock held and size > 0.
func (b *GrowableBuffer[T]) pop() T {
	var zero T
	item := b.ring[b.head]
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.size--
	b.sent++
	return item
}

// grow doubles the ring, unwrapping it to start at index 0. Must be called
// with lock held.
func (b *GrowableBuffer[T]) grow() {
	next := make([]T, len(b.ring)*2)
	n := copy(next, b.ring[b.head:min(b.head+b.size, len(b.ring))])
	copy(next[n:], b.ring[:b.size-n])

	b.ring = next
	b.head = 0
	b.resizes++
}
