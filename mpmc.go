// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMCQueue is a CAS-based multi-producer multi-consumer bounded queue.
//
// Each slot carries a sequence number that encodes which logical
// generation currently owns it, which provides:
//   - Full ABA safety via sequence-based validation
//   - Works with both distinct and non-distinct values
//   - FIFO order between successfully claimed slots
//
// Producers claim slots by advancing the tail position with CAS and
// publish by bumping the slot sequence; consumers mirror this on the
// head position and re-arm the slot a full generation (capacity) ahead.
// Sequence numbers never decrease, which is what lets CAS losers
// distinguish "full" from "empty" from "in flight".
//
// Memory: n slots (16+ bytes per slot)
type MPMCQueue[T any] struct {
	_        pad
	tail     atomix.Uint64 // Producer index
	_        pad
	head     atomix.Uint64 // Consumer index
	_        pad
	buffer   []mpmcSlot[T]
	mask     uint64
	capacity uint64
}

type mpmcSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// NewMPMCQueue creates a new MPMC queue.
// Capacity rounds up to the next power of 2.
// Panics if capacity < 2.
func NewMPMCQueue[T any](capacity int) *MPMCQueue[T] {
	if capacity < 2 {
		panic("lockfree: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &MPMCQueue[T]{
		buffer:   make([]mpmcSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *MPMCQueue[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if diff < 0 {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// EnqueueWith claims a slot and constructs the element in place by
// calling fill on the slot's storage.
//
// If fill returns an error or panics, the claimed slot is poisoned the
// same way a successful dequeue re-arms it: the value is zeroed and the
// sequence advances a full generation, so the slot re-enters rotation
// and consumers skip the hole. The failure then propagates to the
// caller; the queue itself stays fully usable.
//
// Returns ErrWouldBlock if the queue is full.
func (q *MPMCQueue[T]) EnqueueWith(fill func(*T) error) error {
	var (
		pos  uint64
		slot *mpmcSlot[T]
	)
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		slot = &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				pos = tail
				break
			}
		} else if diff < 0 {
			return ErrWouldBlock
		}
		sw.Once()
	}

	committed := false
	defer func() {
		if !committed {
			var zero T
			slot.data = zero
			slot.seq.StoreRelease(pos + q.capacity)
		}
	}()

	if err := fill(&slot.data); err != nil {
		return err
	}
	slot.seq.StoreRelease(pos + 1)
	committed = true
	return nil
}

// Dequeue removes and returns an element from the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMCQueue[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		slot := &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(head + q.capacity)
				return elem, nil
			}
		} else if diff < 0 {
			var zero T
			return zero, ErrWouldBlock
		} else if uint64(diff) >= q.capacity-1 {
			// seq >= head+capacity at the current head means this
			// generation was poisoned by a failed in-place construction:
			// a regular re-arm to that value only happens after the head
			// has already passed the position. Skip the hole so poisoning
			// can never stall consumers.
			q.head.CompareAndSwapAcqRel(head, head+1)
		}
		sw.Once()
	}
}

// DequeueInto removes an element from the queue and assigns it to *dst.
// Returns ErrWouldBlock if the queue is empty; *dst is left unchanged.
func (q *MPMCQueue[T]) DequeueInto(dst *T) error {
	elem, err := q.Dequeue()
	if err != nil {
		return err
	}
	*dst = elem
	return nil
}

// DequeueWith claims the front element and reads it in place by calling
// read on the slot's storage.
//
// The element is consumed whether or not read succeeds: the slot is
// zeroed and re-armed on return, matching the poisoned-dequeue behavior
// for a failed in-place extraction. A read error or panic propagates to
// the caller; the queue itself stays fully usable.
//
// Returns ErrWouldBlock if the queue is empty.
func (q *MPMCQueue[T]) DequeueWith(read func(*T) error) error {
	var (
		pos  uint64
		slot *mpmcSlot[T]
	)
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		slot = &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				pos = head
				break
			}
		} else if diff < 0 {
			return ErrWouldBlock
		} else if uint64(diff) >= q.capacity-1 {
			// Poisoned hole; see Dequeue.
			q.head.CompareAndSwapAcqRel(head, head+1)
		}
		sw.Once()
	}

	defer func() {
		var zero T
		slot.data = zero
		slot.seq.StoreRelease(pos + q.capacity)
	}()

	return read(&slot.data)
}

// Len returns the approximate number of buffered elements.
//
// Concurrent producers and consumers move both positions while the
// counters are read, so the result is advisory: use it for heuristics
// such as backpressure, never for correctness decisions. The count is
// exact while the queue is quiescent.
func (q *MPMCQueue[T]) Len() int {
	tail := q.tail.LoadRelaxed()
	head := q.head.LoadRelaxed()
	if head >= tail {
		return 0
	}
	n := tail - head
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Empty reports whether the queue appears empty. Advisory; see Len.
func (q *MPMCQueue[T]) Empty() bool {
	head := q.head.LoadRelaxed()
	tail := q.tail.LoadRelaxed()
	return head >= tail
}

// Full reports whether the queue appears full. Advisory; see Len.
func (q *MPMCQueue[T]) Full() bool {
	return q.Len() >= int(q.capacity)
}

// Cap returns the queue capacity.
func (q *MPMCQueue[T]) Cap() int {
	return int(q.capacity)
}

// Clear discards all buffered elements through the regular dequeue
// path, so position counters keep increasing monotonically.
//
// The caller must ensure no other goroutine accesses the queue during
// Clear.
func (q *MPMCQueue[T]) Clear() {
	for {
		if _, err := q.Dequeue(); err != nil {
			return
		}
	}
}
