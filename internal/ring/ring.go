// Package ring implements a bounded single-producer/single-consumer
// queue. It never blocks the producer: once full, Push drops the
// incoming item and counts the drop so the consumer can report it.
// Grounded on the original engine's RingBuffer, translated to the Go
// memory model — atomic.Uint64's Load/Store already give the
// acquire/release pairing the original expressed with explicit
// memory_order_acquire/memory_order_release.
package ring

import (
	"runtime"
	"sync/atomic"
)

// Queue is a fixed-capacity SPSC ring of T. Capacity is rounded up to
// a power of two so index wrapping is a mask instead of a modulo.
type Queue[T any] struct {
	mask    uint64
	buf     []T
	head    atomic.Uint64 // next slot the consumer will read
	tail    atomic.Uint64 // next slot the producer will write
	dropped atomic.Uint64
}

// New builds a queue that holds at least capacity items.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	size := nextPow2(capacity)
	return &Queue[T]{
		mask: uint64(size - 1),
		buf:  make([]T, size),
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Push attempts to enqueue v. It returns false, and increments the
// drop counter, if the queue is full — the producer never blocks.
func (q *Queue[T]) Push(v T) bool {
	tail := q.tail.Load()
	head := q.head.Load() // acquire: see the consumer's latest drain
	if tail-head >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail&q.mask] = v
	q.tail.Store(tail + 1) // release: publish the new item
	return true
}

// Pop removes and returns the oldest item. ok is false if the queue is
// currently empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	head := q.head.Load()
	tail := q.tail.Load() // acquire: see the producer's latest publish
	if head == tail {
		return v, false
	}
	v = q.buf[head&q.mask]
	q.head.Store(head + 1) // release: free the slot
	return v, true
}

// Len reports the number of items currently queued. It is advisory —
// useful for diagnostics, not for synchronization.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Dropped reports how many Push calls have failed since creation.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// WaitPop spins with a scheduler yield until an item is available or
// stop reports true, never sleeping — the consumer keeps pace with a
// producer that can publish every few microseconds.
func (q *Queue[T]) WaitPop(stop func() bool) (v T, ok bool) {
	for {
		if v, ok = q.Pop(); ok {
			return v, true
		}
		if stop != nil && stop() {
			return v, false
		}
		runtime.Gosched()
	}
}
