// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"sync/atomic"

	"code.hybscloud.com/spin"

	"github.com/jerryli99/lockfree-datastructures-lib/internal/hazard"
)

// stackNode is one link of a Stack. next is written only before the
// node is published by the push CAS, so it needs no atomicity of its
// own.
type stackNode[T any] struct {
	data T
	next *stackNode[T]
}

// Stack is an unbounded lock-free LIFO for any number of producer and
// consumer goroutines.
//
// Push allocates a node from the pool and swings head onto it with a
// CAS. Pop protects the head node through a hazard-pointer record
// before reading its link, unlinks it with a CAS, then retires it to
// the domain. A retired node returns to the pool only after the domain
// proves no concurrent Pop still holds it, which is what makes the
// unlink CAS immune to recycled-pointer aliasing: while any Pop has a
// node protected, that exact pointer cannot reappear at head with a
// different link behind it.
//
// Both operations loop only under contention and back off with a spin
// wait between attempts.
type Stack[T any] struct {
	_    pad
	head atomic.Pointer[stackNode[T]]
	_    padPtr
	dom  *hazard.Domain[stackNode[T]]
	pool *nodePool[stackNode[T]]
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	s := &Stack[T]{pool: newNodePool[stackNode[T]]()}
	s.dom = hazard.New(func(n *stackNode[T]) {
		var zero T
		n.data = zero
		n.next = nil
		s.pool.put(n)
	})
	return s
}

// Push adds an element to the top of the stack. It cannot fail: the
// stack is unbounded, so there is no error to report.
func (s *Stack[T]) Push(elem *T) {
	n := s.pool.get()
	n.data = *elem

	sw := spin.Wait{}
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			return
		}
		sw.Once()
	}
}

// Pop removes and returns the top element. Returns (zero-value,
// ErrWouldBlock) if the stack is empty.
func (s *Stack[T]) Pop() (T, error) {
	rec := s.dom.Acquire()
	defer s.dom.Release(rec)

	sw := spin.Wait{}
	for {
		n := rec.Protect(&s.head)
		if n == nil {
			var zero T
			return zero, ErrWouldBlock
		}
		next := n.next
		if s.head.CompareAndSwap(n, next) {
			elem := n.data
			rec.Clear()
			s.dom.Retire(rec, n)
			return elem, nil
		}
		sw.Once()
	}
}

// PopInto removes the top element and writes it to *elem. Returns
// ErrWouldBlock if the stack is empty.
func (s *Stack[T]) PopInto(elem *T) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	*elem = v
	return nil
}

// Empty reports whether the stack was empty at some instant. Under
// concurrent pushes and pops the answer is advisory.
func (s *Stack[T]) Empty() bool {
	return s.head.Load() == nil
}

// Clear discards all elements and recycles their nodes directly,
// bypassing the hazard domain. It must only be called while no other
// goroutine is operating on the stack.
func (s *Stack[T]) Clear() {
	n := s.head.Swap(nil)
	for n != nil {
		next := n.next
		var zero T
		n.data = zero
		n.next = nil
		s.pool.put(n)
		n = next
	}
}

// Reclaim flushes every node whose recycling was deferred by the
// hazard domain back to the pool. It must only be called while no
// other goroutine is operating on the stack.
func (s *Stack[T]) Reclaim() {
	s.dom.ReclaimAll()
}

// Stats reports the node pool's allocation counters. Nodes retired by
// Pop count as live until a domain scan or Reclaim returns them to the
// pool.
func (s *Stack[T]) Stats() PoolStats {
	return s.pool.stats()
}
