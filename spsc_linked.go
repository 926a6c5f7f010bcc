// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "sync/atomic"

// spscNode is one link of an SPSCQueue chain. Only the next pointer is
// shared between the two sides, so it is the only atomic field.
type spscNode[T any] struct {
	data T
	next atomic.Pointer[spscNode[T]]
}

// SPSCQueue is an unbounded FIFO queue for exactly one producer
// goroutine and exactly one consumer goroutine. Both sides are
// wait-free: an enqueue links one node, a dequeue unlinks one node,
// and neither ever loops or spins.
//
// The chain always holds one resident dummy node. head points at the
// dummy (consumer side), tail at the last linked node (producer side);
// the element popped is the one after the dummy, which then becomes
// the new dummy. A detached dummy is only ever reachable from the
// consumer, so it can be recycled through the node pool immediately,
// with no cross-goroutine reclamation protocol.
//
// head and tail are plain pointers owned by their side. Using the
// queue from more than one goroutine per side is a data race.
type SPSCQueue[T any] struct {
	_    pad
	head *spscNode[T]
	_    padPtr
	tail *spscNode[T]
	_    padPtr
	pool *nodePool[spscNode[T]]
}

// NewSPSCQueue creates an empty single-producer single-consumer queue.
func NewSPSCQueue[T any]() *SPSCQueue[T] {
	pool := newNodePool[spscNode[T]]()
	dummy := pool.get()
	return &SPSCQueue[T]{head: dummy, tail: dummy, pool: pool}
}

// Enqueue adds an element to the back of the queue. Never fails; the
// error is always nil (the queue is unbounded). Producer side only.
func (q *SPSCQueue[T]) Enqueue(elem *T) error {
	n := q.pool.get()
	n.data = *elem
	q.tail.next.Store(n)
	q.tail = n
	return nil
}

// EnqueueWith constructs the element in place by calling fill on a
// fresh node before it is linked. If fill returns an error or panics,
// the node goes back to the pool and the queue is untouched; the
// failure propagates to the caller. Producer side only.
func (q *SPSCQueue[T]) EnqueueWith(fill func(*T) error) error {
	n := q.pool.get()
	committed := false
	defer func() {
		if !committed {
			var zero T
			n.data = zero
			q.pool.put(n)
		}
	}()

	if err := fill(&n.data); err != nil {
		return err
	}
	committed = true

	q.tail.next.Store(n)
	q.tail = n
	return nil
}

// Dequeue removes and returns the front element. Returns (zero-value,
// ErrWouldBlock) if the queue is empty. Consumer side only.
func (q *SPSCQueue[T]) Dequeue() (T, error) {
	next := q.head.next.Load()
	if next == nil {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := next.data
	var zero T
	next.data = zero

	old := q.head
	q.head = next
	old.next.Store(nil)
	q.pool.put(old)
	return elem, nil
}

// DequeueInto removes the front element and writes it to *elem.
// Returns ErrWouldBlock if the queue is empty. Consumer side only.
func (q *SPSCQueue[T]) DequeueInto(elem *T) error {
	v, err := q.Dequeue()
	if err != nil {
		return err
	}
	*elem = v
	return nil
}

// DequeueWith hands the front element to read in place. If read
// returns an error, the element stays at the front and the dequeue can
// be retried; it is removed only on success. Consumer side only.
func (q *SPSCQueue[T]) DequeueWith(read func(*T) error) error {
	next := q.head.next.Load()
	if next == nil {
		return ErrWouldBlock
	}

	if err := read(&next.data); err != nil {
		return err
	}
	var zero T
	next.data = zero

	old := q.head
	q.head = next
	old.next.Store(nil)
	q.pool.put(old)
	return nil
}

// Empty reports whether the queue was empty at some instant. Consumer
// side only: it is exact there, since only the consumer removes.
func (q *SPSCQueue[T]) Empty() bool {
	return q.head.next.Load() == nil
}

// Clear drains the queue through the consume path, recycling every
// node. Consumer side only.
func (q *SPSCQueue[T]) Clear() {
	for {
		if _, err := q.Dequeue(); err != nil {
			return
		}
	}
}

// Stats reports the node pool's allocation counters. The resident
// dummy node counts as one live allocation for the queue's lifetime.
func (q *SPSCQueue[T]) Stats() PoolStats {
	return q.pool.stats()
}
