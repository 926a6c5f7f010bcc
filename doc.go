// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lockfree provides concurrent queue and stack containers.
//
// The package offers five containers optimized for different
// producer/consumer patterns and blocking disciplines:
//
//   - MPMCQueue: bounded ring, multiple producers and consumers
//   - SPSCRing: bounded ring buffer, one producer and one consumer
//   - SPSCQueue: unbounded linked queue, one producer and one consumer
//   - BlockingQueue: unbounded FIFO whose pops can wait for elements
//   - Stack: unbounded LIFO, multiple producers and consumers
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := lockfree.NewSPSCRing[Event](1024)
//	q := lockfree.NewMPMCQueue[*Request](4096)
//	q := lockfree.NewSPSCQueue[Event]()
//	q := lockfree.NewBlockingQueue[Job]()
//	s := lockfree.NewStack[Buffer]()
//
// Builder API auto-selects the algorithm based on constraints:
//
//	q := lockfree.Build[Event](lockfree.New(1024).SingleProducer().SingleConsumer())  // → SPSCRing
//	q := lockfree.Build[Event](lockfree.New(1024))                                    // → MPMCQueue
//	q := lockfree.BuildLinked[Event](lockfree.NewUnbounded().SingleProducer().SingleConsumer())
//	q := lockfree.BuildBlocking[Job](lockfree.NewUnbounded())
//
// # Basic Usage
//
// All queues share the same interface for enqueueing and dequeueing:
//
//	// Create a queue
//	q := lockfree.NewMPMCQueue[int](1024)
//
//	// Enqueue (non-blocking)
//	value := 42
//	err := q.Enqueue(&value)
//	if lockfree.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if lockfree.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Common Patterns
//
// Pipeline Stage (SPSCRing):
//
//	// Stage 1 → Queue → Stage 2
//	q := lockfree.NewSPSCRing[Data](1024)
//
//	go func() { // Producer (Stage 1)
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Enqueue(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer (Stage 2)
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Dequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Worker Pool (MPMCQueue):
//
//	// Multiple submitters → Multiple workers
//	q := lockfree.NewMPMCQueue[Job](4096)
//
//	// Workers
//	for range numWorkers {
//	    go func() {
//	        for {
//	            job, err := q.Dequeue()
//	            if err == nil {
//	                job.Run()
//	            }
//	        }
//	    }()
//	}
//
//	// Submit jobs from anywhere
//	func Submit(j Job) error {
//	    return q.Enqueue(&j)
//	}
//
// Waiting Consumer (BlockingQueue):
//
//	// Producers never wait; consumers sleep until work arrives
//	q := lockfree.NewBlockingQueue[Job]()
//
//	go func() {
//	    for {
//	        job, err := q.PopFor(time.Second)
//	        if err != nil {
//	            continue // idle tick, check shutdown flags etc.
//	        }
//	        job.Run()
//	    }
//	}()
//
//	q.Enqueue(&job)                          // one element, wakes one waiter
//	q.EnqueueSeq(slices.Values(batch))       // whole batch, wakes all waiters
//
// Free List (Stack):
//
//	// Recently released buffers are reused first (LIFO keeps caches warm)
//	free := lockfree.NewStack[*bytes.Buffer]()
//
//	func acquire() *bytes.Buffer {
//	    if buf, err := free.Pop(); err == nil {
//	        return buf
//	    }
//	    return new(bytes.Buffer)
//	}
//
//	func release(buf *bytes.Buffer) {
//	    buf.Reset()
//	    free.Push(&buf)
//	}
//
// # In-Place Construction
//
// Every queue offers EnqueueWith, and the non-blocking queues offer
// DequeueWith. Both hand the caller a pointer to the element's storage
// instead of copying through the stack. The fill or read callback may
// fail, and each container keeps itself consistent when it does:
//
//	MPMCQueue:     a failed fill poisons the claimed slot; the slot is
//	               skipped by consumers and reused one lap later. A
//	               failed read still consumes the element.
//	SPSCRing:      a failed fill leaves the write position unmoved; a
//	               failed read leaves the element at the front. Both
//	               retry cleanly.
//	SPSCQueue:     a failed fill returns the node to the pool before it
//	               is ever linked; a failed read leaves the element at
//	               the front.
//	BlockingQueue: same as SPSCQueue; the chain is never touched by a
//	               failed fill.
//
// A callback panic is handled the same way as an error return.
//
// # Algorithm Selection
//
// The builder selects the algorithm from the declared constraints:
//
//	Bounded + SingleProducer + SingleConsumer → SPSCRing (Lamport ring buffer)
//	Bounded, anything else                    → MPMCQueue (sequence-based ring)
//	Unbounded + SingleProducer + SingleConsumer → SPSCQueue (linked, via BuildLinked)
//	Unbounded, anything else                  → BlockingQueue (via BuildBlocking)
//
// Type-safe builder functions enforce constraints at compile time:
//
//	Build[T](b)         → Queue[T]          // bounded; picks SPSCRing or MPMCQueue
//	BuildRing[T](b)     → *SPSCRing[T]      // requires bounded + SP + SC
//	BuildMPMC[T](b)     → *MPMCQueue[T]     // requires bounded
//	BuildLinked[T](b)   → *SPSCQueue[T]     // requires unbounded + SP + SC
//	BuildBlocking[T](b) → *BlockingQueue[T] // requires unbounded
//
// The Stack has no builder entry; construct it directly with NewStack.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	// Retry loop with backoff
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lockfree.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// Two package-local errors cover the blocking queue's extra surface:
// [ErrEmpty] from Front/Back on an empty queue (a precondition
// violation, not backpressure) and [ErrTimeout] from PopFor/PopUntil
// when the deadline passes first.
//
// For semantic error classification (delegates to iox):
//
//	lockfree.IsWouldBlock(err)  // true if queue full/empty
//	lockfree.IsSemantic(err)    // true if control flow signal
//	lockfree.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Length
//
// Bounded capacities round up to the next power of 2:
//
//	q := lockfree.NewMPMCQueue[int](3)     // Actual capacity: 4
//	q := lockfree.NewMPMCQueue[int](10)    // Actual capacity: 16
//	q := lockfree.NewMPMCQueue[int](1000)  // Actual capacity: 1024
//	q := lockfree.NewMPMCQueue[int](1024)  // Actual capacity: 1024
//
// Minimum capacity is 2 (already a power of 2). Panic if capacity < 2.
//
// Len on the lock-free containers is advisory: it combines two counters
// read at slightly different instants, so under concurrent traffic it
// can lag either way. It is exact whenever the container is externally
// quiesced. BlockingQueue.Len reads its count under the lock and is
// always exact. SPSCQueue tracks no count at all and offers only Empty.
//
// # Thread Safety
//
// All operations are thread-safe within their access pattern constraints:
//
//   - MPMCQueue: multiple producer and consumer goroutines
//   - SPSCRing: one producer goroutine, one consumer goroutine
//   - SPSCQueue: one producer goroutine, one consumer goroutine
//   - BlockingQueue: multiple producer and consumer goroutines
//   - Stack: multiple producer and consumer goroutines
//
// Violating these constraints (e.g., two producers on an SPSCRing)
// causes undefined behavior including data corruption and races.
// Clear on the lock-free containers additionally requires that no other
// goroutine is operating on the container; BlockingQueue.Clear is safe
// under full concurrency.
//
// # Memory Reclamation
//
// The linked containers (SPSCQueue, BlockingQueue, Stack) recycle their
// nodes through per-container [sync.Pool]-backed pools and expose the
// pool's counters via Stats:
//
//	st := s.Stats()
//	fmt.Println(st.Allocs, st.Frees, st.Live())
//
// SPSCQueue and BlockingQueue recycle a node the moment it is unlinked,
// because their access patterns guarantee no other goroutine can still
// hold it. The Stack cannot know that: a concurrent Pop may still be
// reading a node another Pop just removed. Popped stack nodes are
// therefore retired to a hazard-pointer domain and return to the pool
// only once no in-flight Pop holds them. Stack.Reclaim flushes the
// deferred backlog when the stack is quiesced.
//
// # Graceful Shutdown
//
// The queues have no close signal of their own; shut down by stopping
// producers first, then draining:
//
//	// Producer goroutines finish
//	prodWg.Wait()
//
//	// Consumers drain remaining items
//	for {
//	    item, err := q.Dequeue()
//	    if err != nil {
//	        break
//	    }
//	    process(item)
//	}
//
// BlockingQueue consumers should prefer the timed pops so an idle
// worker wakes up to observe shutdown flags instead of sleeping in Pop
// forever.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification.
// The race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomic memory orderings (acquire-release semantics).
//
// The MPMCQueue protects its non-atomic slot data with per-slot sequence
// numbers under acquire-release semantics. The algorithm is correct, but
// the race detector may report false positives because it cannot track
// synchronization provided by atomic operations on separate variables.
//
// For lock-free algorithm correctness verification, use:
//   - Formal verification tools (TLA+, SPIN)
//   - Stress testing without race detector
//   - Memory model analysis
//
// Tests incompatible with race detection are excluded via //go:build !race.
// SPSCRing, SPSCQueue, Stack, and BlockingQueue synchronize through
// [sync/atomic], [sync.Pool], and [sync.Mutex], which the detector
// understands; they are exercised under the race detector in full.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lockfree
