// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

// Queue is the combined producer-consumer interface for a bounded FIFO
// queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Both
// operations return ErrWouldBlock when they cannot proceed (queue full
// or empty).
//
// MPMCQueue and SPSCRing implement Queue. The unbounded structures
// (BlockingQueue, SPSCQueue) implement Producer and Consumer but not
// Queue, because they have no fixed capacity to report.
//
// Example:
//
//	q := lockfree.NewMPMCQueue[int](1024)
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// Producer provides non-blocking enqueue operations. The element is passed
// by pointer to avoid copying large structs. The queue stores a copy of
// the pointed-to value, so the original can be modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// The element is copied into the queue's internal storage.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	// Unbounded queues never fail and always return nil.
	//
	// Thread safety depends on queue type:
	//   - SPSCRing/SPSCQueue: single producer only
	//   - MPMCQueue/BlockingQueue: multiple producers safe
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// Consumer provides non-blocking dequeue operations. The element is returned
// by value (copied from the queue's internal storage). The original slot or
// node is cleared to allow garbage collection of referenced objects.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns the dequeued element on success.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// Thread safety depends on queue type:
	//   - SPSCRing/SPSCQueue: single consumer only
	//   - MPMCQueue/BlockingQueue: multiple consumers safe
	Dequeue() (T, error)
}

// Clearer discards all buffered elements.
//
// All five containers implement this interface. Except for
// BlockingQueue, whose Clear locks internally, Clear requires that no
// other goroutine accesses the container for the duration of the call:
// it is a shutdown/reset facility, not a concurrent operation.
//
// Clear drains through the normal consume path rather than rewinding
// position counters, so the monotonic-counter invariant of the
// array-based queues is preserved across a Clear.
//
// Example:
//
//	prodWg.Wait()  // Ensure no goroutine still touches q
//	consWg.Wait()
//	if c, ok := any(q).(lockfree.Clearer); ok {
//	    c.Clear()
//	}
type Clearer interface {
	// Clear removes and discards all elements.
	// Cleared slots and nodes are released for reuse or garbage
	// collection.
	Clear()
}
