// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"iter"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// blockNode is one element of a BlockingQueue chain. The next field
// doubles as the free-list link while a detached chain waits for
// recycling.
type blockNode[T any] struct {
	data T
	next *blockNode[T]
}

// BlockingQueue is an unbounded FIFO queue guarded by a single mutex,
// with condition-variable wakeups for waiting consumers.
//
// It is the one container in this package whose operations may suspend
// the calling goroutine: Pop and the timed PopFor/PopUntil wait for an
// element to arrive. Everything else (Enqueue, Dequeue, PopBulk, Front,
// Back) completes promptly under the lock. Any number of goroutines may
// produce and consume.
//
// Nodes are built and recycled outside the lock whenever possible: a
// push allocates and fills its node first and only links it while
// locked, so a failing in-place construction (EnqueueWith) can never
// corrupt the chain or leak the node.
//
// Unlike the lock-free containers, Len and Empty are exact: they read
// the count under the lock.
type BlockingQueue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	head  *blockNode[T]
	tail  *blockNode[T]
	count int
	// pool is replaced wholesale by Swap and MoveFrom, which follow the
	// convention that a pool travels with the nodes it allocated.
	// Atomic so pushes can grab it without taking the queue lock.
	pool atomic.Pointer[nodePool[blockNode[T]]]
}

// NewBlockingQueue creates an empty blocking queue.
func NewBlockingQueue[T any]() *BlockingQueue[T] {
	q := &BlockingQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	q.pool.Store(newNodePool[blockNode[T]]())
	return q
}

// link appends n to the chain. Caller holds q.mu.
func (q *BlockingQueue[T]) link(n *blockNode[T]) {
	if q.head == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.count++
}

// unlink detaches and returns the front node, or nil when the queue is
// empty. Caller holds q.mu.
func (q *BlockingQueue[T]) unlink() *blockNode[T] {
	n := q.head
	if n == nil {
		return nil
	}
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.count--
	return n
}

// recycle resets a detached node and returns it to the current pool.
func (q *BlockingQueue[T]) recycle(n *blockNode[T]) {
	var zero T
	n.data = zero
	n.next = nil
	q.pool.Load().put(n)
}

// Enqueue adds an element to the back of the queue and wakes one
// waiting consumer. Never fails; the error is always nil (the queue is
// unbounded).
func (q *BlockingQueue[T]) Enqueue(elem *T) error {
	n := q.pool.Load().get()
	n.data = *elem

	q.mu.Lock()
	q.link(n)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// EnqueueWith constructs the element in place by calling fill on a
// fresh node before it is linked.
//
// If fill returns an error or panics, the node goes back to the pool
// and the queue is untouched: no corruption, no leak. The failure
// propagates to the caller.
func (q *BlockingQueue[T]) EnqueueWith(fill func(*T) error) error {
	n := q.pool.Load().get()
	committed := false
	defer func() {
		if !committed {
			q.recycle(n)
		}
	}()

	if err := fill(&n.data); err != nil {
		return err
	}
	committed = true

	q.mu.Lock()
	q.link(n)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// EnqueueSeq pushes every element produced by seq as one locked splice
// and wakes all waiting consumers. The node chain is built entirely
// outside the lock. Returns the number of elements pushed.
//
// Example:
//
//	q.EnqueueSeq(slices.Values([]int{1, 2, 3}))
func (q *BlockingQueue[T]) EnqueueSeq(seq iter.Seq[T]) int {
	pool := q.pool.Load()
	var first, last *blockNode[T]
	pushed := 0
	for v := range seq {
		n := pool.get()
		n.data = v
		if first == nil {
			first = n
		} else {
			last.next = n
		}
		last = n
		pushed++
	}
	if first == nil {
		return 0
	}

	q.mu.Lock()
	if q.head == nil {
		q.head = first
	} else {
		q.tail.next = first
	}
	q.tail = last
	q.count += pushed
	q.mu.Unlock()
	q.cond.Broadcast()
	return pushed
}

// Dequeue removes and returns the front element without waiting.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *BlockingQueue[T]) Dequeue() (T, error) {
	q.mu.Lock()
	n := q.unlink()
	q.mu.Unlock()
	if n == nil {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := n.data
	q.recycle(n)
	return elem, nil
}

// Pop removes and returns the front element, suspending the calling
// goroutine until one is available.
func (q *BlockingQueue[T]) Pop() T {
	q.mu.Lock()
	for q.head == nil {
		q.cond.Wait()
	}
	n := q.unlink()
	q.mu.Unlock()

	elem := n.data
	q.recycle(n)
	return elem
}

// PopFor is PopUntil with a deadline d from now.
func (q *BlockingQueue[T]) PopFor(d time.Duration) (T, error) {
	return q.PopUntil(time.Now().Add(d))
}

// PopUntil removes and returns the front element, waiting until the
// deadline for one to arrive.
//
// Returns (zero-value, ErrTimeout) once the deadline has passed with
// the queue still empty; nothing is consumed in that case, and the
// timeout is reported no earlier than the deadline. An element that
// arrives before the deadline is handed to a waiter immediately. An
// already-expired deadline still pops an immediately available element.
func (q *BlockingQueue[T]) PopUntil(deadline time.Time) (T, error) {
	q.mu.Lock()
	var timer *time.Timer
	for q.head == nil {
		if !time.Now().Before(deadline) {
			q.mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			var zero T
			return zero, ErrTimeout
		}
		if timer == nil {
			timer = time.AfterFunc(time.Until(deadline), func() {
				// Taking the lock first keeps the broadcast from firing
				// between a waiter's deadline check and its park.
				q.mu.Lock()
				q.mu.Unlock()
				q.cond.Broadcast()
			})
		}
		q.cond.Wait()
	}
	n := q.unlink()
	q.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}

	elem := n.data
	q.recycle(n)
	return elem, nil
}

// PopBulk removes up to len(dst) elements into dst under one lock
// acquisition and returns the number removed. It never waits: an empty
// queue yields 0.
func (q *BlockingQueue[T]) PopBulk(dst []T) int {
	if len(dst) == 0 {
		return 0
	}

	q.mu.Lock()
	var chain *blockNode[T]
	popped := 0
	for popped < len(dst) {
		n := q.unlink()
		if n == nil {
			break
		}
		dst[popped] = n.data
		popped++
		n.next = chain
		chain = n
	}
	q.mu.Unlock()

	for chain != nil {
		n := chain
		chain = n.next
		q.recycle(n)
	}
	return popped
}

// Front returns a copy of the front element without removing it.
// Returns ErrEmpty if the queue is empty: calling Front on an empty
// queue is a precondition violation, distinct from backpressure.
func (q *BlockingQueue[T]) Front() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return q.head.data, nil
}

// Back returns a copy of the back element without removing it.
// Returns ErrEmpty if the queue is empty.
func (q *BlockingQueue[T]) Back() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		var zero T
		return zero, ErrEmpty
	}
	return q.tail.data, nil
}

// Len returns the exact number of buffered elements.
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Empty reports whether the queue is empty.
func (q *BlockingQueue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// Clear removes and discards all elements. Unlike the lock-free
// containers' Clear, it is safe under concurrency: the chain is
// detached under the lock and recycled outside it.
func (q *BlockingQueue[T]) Clear() {
	q.mu.Lock()
	n := q.head
	q.head = nil
	q.tail = nil
	q.count = 0
	q.mu.Unlock()

	for n != nil {
		next := n.next
		q.recycle(n)
		n = next
	}
}

// Stats reports the node pool's allocation counters. A push that races
// a Swap or MoveFrom charges its node to the pool the queue held when
// the push started.
func (q *BlockingQueue[T]) Stats() PoolStats {
	return q.pool.Load().stats()
}

// lockPair acquires both queues' mutexes in address order, so
// two-instance operations are deadlock-free regardless of which queue
// the caller invokes them on.
func lockPair[T any](a, b *BlockingQueue[T]) {
	if uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(b)) {
		a.mu.Lock()
		b.mu.Lock()
	} else {
		b.mu.Lock()
		a.mu.Lock()
	}
}

func unlockPair[T any](a, b *BlockingQueue[T]) {
	a.mu.Unlock()
	b.mu.Unlock()
}

// Swap exchanges the contents of the two queues: chains, counts, and
// node pools (a pool travels with the nodes it allocated). Waiters on
// either queue are woken when their queue ends up non-empty.
func (q *BlockingQueue[T]) Swap(other *BlockingQueue[T]) {
	if q == other {
		return
	}
	lockPair(q, other)
	q.head, other.head = other.head, q.head
	q.tail, other.tail = other.tail, q.tail
	q.count, other.count = other.count, q.count
	qp, op := q.pool.Load(), other.pool.Load()
	q.pool.Store(op)
	other.pool.Store(qp)
	qHas, otherHas := q.head != nil, other.head != nil
	unlockPair(q, other)

	if qHas {
		q.cond.Broadcast()
	}
	if otherHas {
		other.cond.Broadcast()
	}
}

// CopyFrom replaces q's contents with a deep copy of src's. The copy's
// nodes come from q's own pool; copying does not adopt src's pool.
// Waiters on q are woken when the copy is non-empty.
func (q *BlockingQueue[T]) CopyFrom(src *BlockingQueue[T]) {
	if q == src {
		return
	}
	lockPair(q, src)
	drop := q.head
	q.head, q.tail, q.count = nil, nil, 0
	pool := q.pool.Load()
	for n := src.head; n != nil; n = n.next {
		c := pool.get()
		c.data = n.data
		if q.head == nil {
			q.head = c
		} else {
			q.tail.next = c
		}
		q.tail = c
		q.count++
	}
	nonEmpty := q.head != nil
	unlockPair(q, src)

	for drop != nil {
		next := drop.next
		var zero T
		drop.data = zero
		drop.next = nil
		pool.put(drop)
		drop = next
	}
	if nonEmpty {
		q.cond.Broadcast()
	}
}

// MoveFrom transfers src's contents into q in O(1): q adopts src's
// chain, count, and pool, and src is left empty with a fresh pool.
// q's previous elements are discarded. Waiters on q are woken when the
// adopted chain is non-empty.
func (q *BlockingQueue[T]) MoveFrom(src *BlockingQueue[T]) {
	if q == src {
		return
	}
	lockPair(q, src)
	drop := q.head
	dropPool := q.pool.Load()
	q.head, q.tail, q.count = src.head, src.tail, src.count
	q.pool.Store(src.pool.Load())
	src.head, src.tail, src.count = nil, nil, 0
	src.pool.Store(newNodePool[blockNode[T]]())
	nonEmpty := q.head != nil
	unlockPair(q, src)

	for drop != nil {
		next := drop.next
		var zero T
		drop.data = zero
		drop.next = nil
		dropPool.put(drop)
		drop = next
	}
	if nonEmpty {
		q.cond.Broadcast()
	}
}

// Clone returns a new queue holding a deep copy of q's contents, backed
// by its own fresh pool.
func (q *BlockingQueue[T]) Clone() *BlockingQueue[T] {
	c := NewBlockingQueue[T]()
	pool := c.pool.Load()

	q.mu.Lock()
	for n := q.head; n != nil; n = n.next {
		cn := pool.get()
		cn.data = n.data
		if c.head == nil {
			c.head = cn
		} else {
			c.tail.next = cn
		}
		c.tail = cn
		c.count++
	}
	q.mu.Unlock()
	return c
}
