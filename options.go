// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import "unsafe"

// Options configures container creation and structure selection.
type Options struct {
	// Producer/Consumer constraints (determines structure type)
	singleProducer bool
	singleConsumer bool

	// Growth policy
	unbounded bool

	// Capacity of bounded structures (rounds up to next power of 2)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// Builder provides a fluent API for configuring and creating queues.
// The builder selects the structure based on producer/consumer
// constraints and the growth policy.
//
// Example:
//
//	// Bounded SPSC ring (optimal for single producer/consumer)
//	q := lockfree.BuildRing[Event](lockfree.New(1024).SingleProducer().SingleConsumer())
//
//	// Bounded MPMC queue (default, general purpose)
//	q := lockfree.BuildMPMC[Request](lockfree.New(4096))
//
//	// Unbounded linked SPSC queue
//	q := lockfree.BuildLinked[Event](lockfree.NewUnbounded().SingleProducer().SingleConsumer())
//
//	// Unbounded blocking queue with waiting pops
//	q := lockfree.BuildBlocking[Job](lockfree.NewUnbounded())
type Builder struct {
	opts Options
}

// New creates a builder for a bounded queue with the given capacity.
//
// Capacity rounds up to the next power of 2.
// For example, capacity=4 results in actual capacity=4, capacity=1000 results
// in actual capacity=1024.
//
// Panics if capacity < 2.
//
// Example:
//
//	// Create builder, then configure and build
//	b := lockfree.New(1024)
//	q := lockfree.BuildRing[int](b.SingleProducer().SingleConsumer())
//
//	// Or chain directly
//	q := lockfree.BuildMPMC[int](lockfree.New(1024))
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("lockfree: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// NewUnbounded creates a builder for an unbounded queue.
//
// Unbounded queues allocate one node per element on demand and never
// report full. Use BuildLinked for the lock-free SPSC variant or
// BuildBlocking for the lock-based variant with waiting pops.
func NewUnbounded() *Builder {
	return &Builder{opts: Options{unbounded: true}}
}

// SingleProducer declares that only one goroutine will enqueue.
// Enables structures specialized for single-producer patterns.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Enables structures specialized for single-consumer patterns.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Build creates a bounded Queue[T] with automatic structure selection.
//
// Structure selection:
//
//	SingleProducer + SingleConsumer → SPSCRing (Lamport ring buffer)
//	Anything else                   → MPMCQueue (per-slot sequence numbers)
//
// A single-producer-only or single-consumer-only configuration receives
// MPMCQueue: its claim protocol is safe at any cardinality, so the
// narrower contract costs nothing in correctness.
//
// Unbounded builders have no common capacity-reporting interface;
// Build panics for them. Use BuildLinked or BuildBlocking instead.
//
// For type-safe returns with concrete types, use:
//   - BuildRing[T](b) → *SPSCRing[T]
//   - BuildMPMC[T](b) → *MPMCQueue[T]
func Build[T any](b *Builder) Queue[T] {
	if b.opts.unbounded {
		panic("lockfree: Build requires a bounded builder; use BuildLinked or BuildBlocking")
	}
	if b.opts.singleProducer && b.opts.singleConsumer {
		return NewSPSCRing[T](b.opts.capacity)
	}
	return NewMPMCQueue[T](b.opts.capacity)
}

// BuildRing creates a bounded SPSC ring with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer(),
// or if it is unbounded.
func BuildRing[T any](b *Builder) *SPSCRing[T] {
	if b.opts.unbounded {
		panic("lockfree: BuildRing requires a bounded builder")
	}
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lockfree: BuildRing requires SingleProducer().SingleConsumer()")
	}
	return NewSPSCRing[T](b.opts.capacity)
}

// BuildMPMC creates a bounded MPMC queue with compile-time type safety.
// Panics if the builder is unbounded or has single-side constraints set.
func BuildMPMC[T any](b *Builder) *MPMCQueue[T] {
	if b.opts.unbounded {
		panic("lockfree: BuildMPMC requires a bounded builder")
	}
	if b.opts.singleProducer || b.opts.singleConsumer {
		panic("lockfree: BuildMPMC requires no constraints")
	}
	return NewMPMCQueue[T](b.opts.capacity)
}

// BuildLinked creates an unbounded linked SPSC queue.
// Panics if builder is not configured with
// NewUnbounded().SingleProducer().SingleConsumer().
func BuildLinked[T any](b *Builder) *SPSCQueue[T] {
	if !b.opts.unbounded {
		panic("lockfree: BuildLinked requires NewUnbounded()")
	}
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lockfree: BuildLinked requires SingleProducer().SingleConsumer()")
	}
	return NewSPSCQueue[T]()
}

// BuildBlocking creates an unbounded blocking queue.
// Panics if the builder is bounded or has single-side constraints set;
// the blocking queue is always safe for any number of producers and
// consumers.
func BuildBlocking[T any](b *Builder) *BlockingQueue[T] {
	if !b.opts.unbounded {
		panic("lockfree: BuildBlocking requires NewUnbounded()")
	}
	if b.opts.singleProducer || b.opts.singleConsumer {
		panic("lockfree: BuildBlocking requires no constraints")
	}
	return NewBlockingQueue[T]()
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
