// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"code.hybscloud.com/atomix"
)

// SPSCRing is a single-producer single-consumer bounded ring buffer.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// and re-reads the peer's true position (with acquire ordering) only
// when the stale cache reports full or empty. This amortizes cross-core
// cache line traffic, which is the whole point of choosing this variant
// over MPMCQueue.
//
// Contract: exactly one goroutine enqueues and exactly one goroutine
// dequeues. Violating this is undefined behavior; it is not detected at
// runtime, matching the performance rationale for the variant.
//
// Memory: O(capacity) with minimal per-slot overhead
type SPSCRing[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSCRing creates a new SPSC ring buffer.
// Capacity rounds up to the next power of 2.
// Panics if capacity < 2.
func NewSPSCRing[T any](capacity int) *SPSCRing[T] {
	if capacity < 2 {
		panic("lockfree: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSCRing[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the ring (producer only).
// Returns ErrWouldBlock if the ring is full.
func (q *SPSCRing[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return ErrWouldBlock
		}
	}

	q.buffer[tail&q.mask] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// EnqueueWith constructs the element in place by calling fill on the
// next slot (producer only).
//
// If fill returns an error or panics, the slot is zeroed and the write
// position is not advanced: the ring is unchanged and the operation can
// be retried. The failure propagates to the caller.
//
// Returns ErrWouldBlock if the ring is full.
func (q *SPSCRing[T]) EnqueueWith(fill func(*T) error) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return ErrWouldBlock
		}
	}

	committed := false
	defer func() {
		if !committed {
			var zero T
			q.buffer[tail&q.mask] = zero
		}
	}()

	if err := fill(&q.buffer[tail&q.mask]); err != nil {
		return err
	}
	committed = true
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the ring is empty.
func (q *SPSCRing[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// DequeueInto removes an element and assigns it to *dst (consumer only).
// Returns ErrWouldBlock if the ring is empty; *dst is left unchanged.
func (q *SPSCRing[T]) DequeueInto(dst *T) error {
	elem, err := q.Dequeue()
	if err != nil {
		return err
	}
	*dst = elem
	return nil
}

// DequeueWith reads the front element in place by calling read on its
// slot (consumer only).
//
// The element is consumed only when read returns nil: on error or panic
// the read position is not advanced, the element stays buffered, and
// the operation can be retried.
//
// Returns ErrWouldBlock if the ring is empty.
func (q *SPSCRing[T]) DequeueWith(read func(*T) error) error {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return ErrWouldBlock
		}
	}

	if err := read(&q.buffer[head&q.mask]); err != nil {
		return err
	}
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return nil
}

// Peek returns a pointer to the front element without consuming it
// (consumer only).
//
// The pointer is valid only until the consumer's next successful
// Dequeue, DequeueInto, DequeueWith, or Clear; there is no stability
// guarantee beyond that.
//
// Returns ErrWouldBlock if the ring is empty.
func (q *SPSCRing[T]) Peek() (*T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return nil, ErrWouldBlock
		}
	}

	return &q.buffer[head&q.mask], nil
}

// Len returns the approximate number of buffered elements.
//
// The peer may move its position while the counters are read, so the
// result is advisory. It is exact while the ring is quiescent.
func (q *SPSCRing[T]) Len() int {
	tail := q.tail.LoadAcquire()
	head := q.head.LoadAcquire()
	if head >= tail {
		return 0
	}
	return int(tail - head)
}

// Available returns the approximate remaining capacity. Advisory; see Len.
func (q *SPSCRing[T]) Available() int {
	return q.Cap() - q.Len()
}

// Empty reports whether the ring appears empty. Advisory; see Len.
func (q *SPSCRing[T]) Empty() bool {
	head := q.head.LoadRelaxed()
	tail := q.tail.LoadAcquire()
	return head >= tail
}

// Full reports whether the ring appears full. Advisory; see Len.
func (q *SPSCRing[T]) Full() bool {
	tail := q.tail.LoadRelaxed()
	head := q.head.LoadAcquire()
	return tail-head > q.mask
}

// Cap returns the ring capacity.
func (q *SPSCRing[T]) Cap() int {
	return int(q.mask + 1)
}

// Clear discards all buffered elements through the regular dequeue
// path, so position counters keep increasing monotonically.
//
// The caller must ensure no other goroutine accesses the ring during
// Clear.
func (q *SPSCRing[T]) Clear() {
	for {
		if _, err := q.Dequeue(); err != nil {
			return
		}
	}
}
