// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree_test

import (
	"errors"
	"slices"
	"testing"

	lockfree "github.com/jerryli99/lockfree-datastructures-lib"
)

// =============================================================================
// Bounded Queues - Basic Operations
// =============================================================================

// TestMPMCQueueBasic tests basic MPMCQueue (Multiple Producer, Multiple
// Consumer) operations: fill to capacity, backpressure, FIFO drain.
func TestMPMCQueueBasic(t *testing.T) {
	q := lockfree.NewMPMCQueue[int](3)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	// Enqueue to capacity
	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	// Full queue returns ErrWouldBlock
	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	// Dequeue in FIFO order
	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	// Empty queue returns ErrWouldBlock
	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestSPSCRingBasic tests basic SPSCRing (Single Producer, Single
// Consumer) operations. Both sides are wait-free.
func TestSPSCRingBasic(t *testing.T) {
	q := lockfree.NewSPSCRing[int](3)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Unbounded Queues - Basic Operations
// =============================================================================

// TestSPSCQueueBasic tests basic SPSCQueue (unbounded linked) operations.
// Enqueue never reports full; Dequeue returns ErrWouldBlock when empty.
func TestSPSCQueueBasic(t *testing.T) {
	q := lockfree.NewSPSCQueue[int]()

	if !q.Empty() {
		t.Fatal("new queue should be empty")
	}
	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	// Unbounded: no enqueue ever fails
	for i := range 100 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if q.Empty() {
		t.Fatal("queue should not be empty after enqueues")
	}

	for i := range 100 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if !q.Empty() {
		t.Fatal("queue should be empty after drain")
	}
	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestBlockingQueueBasic tests the BlockingQueue's non-waiting surface:
// try-dequeue, exact Len, Front/Back accessors.
func TestBlockingQueueBasic(t *testing.T) {
	q := lockfree.NewBlockingQueue[int]()

	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("new queue: Empty=%v Len=%d, want true 0", q.Empty(), q.Len())
	}
	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if _, err := q.Front(); !errors.Is(err, lockfree.ErrEmpty) {
		t.Fatalf("Front on empty: got %v, want ErrEmpty", err)
	}
	if _, err := q.Back(); !errors.Is(err, lockfree.ErrEmpty) {
		t.Fatalf("Back on empty: got %v, want ErrEmpty", err)
	}

	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if q.Len() != 4 {
		t.Fatalf("Len: got %d, want 4", q.Len())
	}

	// Front/Back observe without consuming
	front, err := q.Front()
	if err != nil || front != 100 {
		t.Fatalf("Front: got (%d, %v), want (100, nil)", front, err)
	}
	back, err := q.Back()
	if err != nil || back != 103 {
		t.Fatalf("Back: got (%d, %v), want (103, nil)", back, err)
	}
	if q.Len() != 4 {
		t.Fatalf("Len after Front/Back: got %d, want 4", q.Len())
	}

	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Stack - Basic Operations
// =============================================================================

// TestStackBasic tests basic Stack operations: LIFO order and empty
// behavior.
func TestStackBasic(t *testing.T) {
	s := lockfree.NewStack[int]()

	if !s.Empty() {
		t.Fatal("new stack should be empty")
	}
	if _, err := s.Pop(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		v := i + 100
		s.Push(&v)
	}
	if s.Empty() {
		t.Fatal("stack should not be empty after pushes")
	}

	// Pop in LIFO order
	for i := 3; i >= 0; i-- {
		val, err := s.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if val != i+100 {
			t.Fatalf("Pop: got %d, want %d", val, i+100)
		}
	}

	if !s.Empty() {
		t.Fatal("stack should be empty after drain")
	}
	if _, err := s.Pop(); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Pop on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Wrap-Around Tests - Verify index wrap-around behavior
// =============================================================================

// TestMPMCQueueWrapAround tests MPMCQueue wrap-around with multiple
// fill/drain cycles.
func TestMPMCQueueWrapAround(t *testing.T) {
	q := lockfree.NewMPMCQueue[int](4)

	for round := range 10 {
		for i := range 4 {
			v := round*100 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d enqueue %d: %v", round, i, err)
			}
		}

		for i := range 4 {
			val, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d dequeue %d: %v", round, i, err)
			}
			expected := round*100 + i
			if val != expected {
				t.Fatalf("round %d dequeue %d: got %d, want %d", round, i, val, expected)
			}
		}
	}
}

// TestSPSCRingWrapAround tests SPSCRing wrap-around with multiple
// fill/drain cycles.
func TestSPSCRingWrapAround(t *testing.T) {
	q := lockfree.NewSPSCRing[int](4)

	for round := range 10 {
		for i := range 4 {
			v := round*100 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("round %d enqueue %d: %v", round, i, err)
			}
		}

		for i := range 4 {
			val, err := q.Dequeue()
			if err != nil {
				t.Fatalf("round %d dequeue %d: %v", round, i, err)
			}
			expected := round*100 + i
			if val != expected {
				t.Fatalf("round %d dequeue %d: got %d, want %d", round, i, val, expected)
			}
		}
	}
}

// =============================================================================
// Capacity Tests
// =============================================================================

// TestCapacityRounding tests that capacity is rounded up to next power of 2.
func TestCapacityRounding(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{100, 128},
		{1000, 1024},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			q := lockfree.NewMPMCQueue[int](tt.input)
			if q.Cap() != tt.expected {
				t.Fatalf("NewMPMCQueue(%d).Cap() = %d, want %d", tt.input, q.Cap(), tt.expected)
			}
		})
	}
}

// TestRoundedCapacityIsUsable tests that the whole rounded capacity is
// usable, not just the requested amount: a queue created with capacity
// 10 holds 16 elements, rejects the 17th, drains in FIFO order, and
// accepts new elements afterwards.
func TestRoundedCapacityIsUsable(t *testing.T) {
	q := lockfree.NewMPMCQueue[int](10)

	if q.Cap() != 16 {
		t.Fatalf("Cap: got %d, want 16", q.Cap())
	}

	for i := range 16 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, lockfree.ErrWouldBlock) {
		t.Fatalf("Enqueue 17th: got %v, want ErrWouldBlock", err)
	}

	for i := range 16 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i)
		}
	}

	v = 100
	if err := q.Enqueue(&v); err != nil {
		t.Fatalf("Enqueue after drain: %v", err)
	}
	val, err := q.Dequeue()
	if err != nil || val != 100 {
		t.Fatalf("Dequeue after drain: got (%d, %v), want (100, nil)", val, err)
	}
}

// TestPanicOnSmallCapacity tests that capacity < 2 causes panic.
func TestPanicOnSmallCapacity(t *testing.T) {
	tests := []struct {
		name   string
		create func()
	}{
		{"MPMCQueue", func() { lockfree.NewMPMCQueue[int](1) }},
		{"SPSCRing", func() { lockfree.NewSPSCRing[int](1) }},
		{"Builder_New", func() { lockfree.New(1) }},
		{"SPSCRing_Zero", func() { lockfree.NewSPSCRing[int](0) }},
		{"MPMCQueue_Negative", func() { lockfree.NewMPMCQueue[int](-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic for capacity < 2")
				}
			}()
			tt.create()
		})
	}
}

// =============================================================================
// Edge Cases - Zero values
// =============================================================================

// TestZeroValue tests that zero is a valid value for all containers.
func TestZeroValue(t *testing.T) {
	t.Run("MPMCQueue", func(t *testing.T) {
		q := lockfree.NewMPMCQueue[int](4)
		v := 0
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("enqueue 0: %v", err)
		}
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if val != 0 {
			t.Fatalf("got %d, want 0", val)
		}
	})

	t.Run("SPSCRing", func(t *testing.T) {
		q := lockfree.NewSPSCRing[int](4)
		v := 0
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("enqueue 0: %v", err)
		}
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if val != 0 {
			t.Fatalf("got %d, want 0", val)
		}
	})

	t.Run("SPSCQueue", func(t *testing.T) {
		q := lockfree.NewSPSCQueue[int]()
		v := 0
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("enqueue 0: %v", err)
		}
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if val != 0 {
			t.Fatalf("got %d, want 0", val)
		}
	})

	t.Run("BlockingQueue", func(t *testing.T) {
		q := lockfree.NewBlockingQueue[int]()
		v := 0
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("enqueue 0: %v", err)
		}
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if val != 0 {
			t.Fatalf("got %d, want 0", val)
		}
	})

	t.Run("Stack", func(t *testing.T) {
		s := lockfree.NewStack[int]()
		v := 0
		s.Push(&v)
		val, err := s.Pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if val != 0 {
			t.Fatalf("got %d, want 0", val)
		}
	})
}

// TestValueIndependence tests that the queue stores a copy: mutating
// the source variable after Enqueue must not affect the stored element.
func TestValueIndependence(t *testing.T) {
	mpmc := lockfree.NewMPMCQueue[int](4)
	ring := lockfree.NewSPSCRing[int](4)
	linked := lockfree.NewSPSCQueue[int]()
	blocking := lockfree.NewBlockingQueue[int]()

	queues := []struct {
		name    string
		enqueue func(*int) error
		dequeue func() (int, error)
	}{
		{"MPMCQueue", mpmc.Enqueue, mpmc.Dequeue},
		{"SPSCRing", ring.Enqueue, ring.Dequeue},
		{"SPSCQueue", linked.Enqueue, linked.Dequeue},
		{"BlockingQueue", blocking.Enqueue, blocking.Dequeue},
	}

	for q := range slices.Values(queues) {
		t.Run(q.name, func(t *testing.T) {
			v := 42
			if err := q.enqueue(&v); err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
			v = 0 // mutate after enqueue

			got, err := q.dequeue()
			if err != nil {
				t.Fatalf("Dequeue: %v", err)
			}
			if got != 42 {
				t.Fatalf("got %d, want 42 (stored element must be a copy)", got)
			}
		})
	}
}

// =============================================================================
// Interface Compliance Tests
// =============================================================================

func TestQueueInterface(t *testing.T) {
	var _ lockfree.Queue[int] = lockfree.NewMPMCQueue[int](8)
	var _ lockfree.Queue[int] = lockfree.NewSPSCRing[int](8)
}

func TestProducerConsumerInterface(t *testing.T) {
	var _ lockfree.Producer[int] = lockfree.NewSPSCQueue[int]()
	var _ lockfree.Consumer[int] = lockfree.NewSPSCQueue[int]()
	var _ lockfree.Producer[int] = lockfree.NewBlockingQueue[int]()
	var _ lockfree.Consumer[int] = lockfree.NewBlockingQueue[int]()
}

func TestClearerInterface(t *testing.T) {
	var _ lockfree.Clearer = lockfree.NewMPMCQueue[int](8)
	var _ lockfree.Clearer = lockfree.NewSPSCRing[int](8)
	var _ lockfree.Clearer = lockfree.NewSPSCQueue[int]()
	var _ lockfree.Clearer = lockfree.NewBlockingQueue[int]()
	var _ lockfree.Clearer = lockfree.NewStack[int]()
}
