// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hazard

import (
	"sync/atomic"
	"testing"
)

type node struct {
	v int
}

// TestProtectTracksSource tests that Protect returns whatever the source
// holds at validation time, including nil.
func TestProtectTracksSource(t *testing.T) {
	d := New[node](func(*node) {})
	r := d.Acquire()
	defer d.Release(r)

	var src atomic.Pointer[node]
	n1 := &node{v: 1}
	src.Store(n1)
	if got := r.Protect(&src); got != n1 {
		t.Fatalf("Protect: got %p, want %p", got, n1)
	}

	n2 := &node{v: 2}
	src.Store(n2)
	if got := r.Protect(&src); got != n2 {
		t.Fatalf("Protect after swap: got %p, want %p", got, n2)
	}

	src.Store(nil)
	if got := r.Protect(&src); got != nil {
		t.Fatalf("Protect of nil source: got %p, want nil", got)
	}
}

// TestProtectBlocksFree tests the ownership contract: a node pinned by
// one record survives a peer's retire and scan, and is freed once the
// pin drops.
func TestProtectBlocksFree(t *testing.T) {
	freed := make(map[*node]bool)
	d := New[node](func(n *node) { freed[n] = true })

	var src atomic.Pointer[node]
	n := &node{v: 1}
	src.Store(n)

	reader := d.Acquire()
	if got := reader.Protect(&src); got != n {
		t.Fatalf("Protect: got %p, want %p", got, n)
	}

	// A writer unlinks the node and retires it while the reader still
	// holds the pin. The scan on release must keep the node alive.
	writer := d.Acquire()
	src.Store(nil)
	d.Retire(writer, n)
	d.Release(writer)
	if freed[n] {
		t.Fatal("pinned node was freed")
	}

	reader.Clear()
	d.Release(reader)

	d.ReclaimAll()
	if !freed[n] {
		t.Fatal("node not freed after pin dropped")
	}
}

// TestRetireThresholdScan tests that hitting the retire threshold runs a
// scan which frees every unpinned node.
func TestRetireThresholdScan(t *testing.T) {
	freedCount := 0
	d := New[node](func(*node) { freedCount++ })

	r := d.Acquire()
	for i := range retireThreshold {
		d.Retire(r, &node{v: i})
		if i < retireThreshold-1 && freedCount != 0 {
			t.Fatalf("scan ran after %d retires, threshold is %d", i+1, retireThreshold)
		}
	}
	if freedCount != retireThreshold {
		t.Fatalf("freed %d nodes at threshold, want %d", freedCount, retireThreshold)
	}
	if len(r.retired) != 0 {
		t.Fatalf("retired list holds %d nodes after scan, want 0", len(r.retired))
	}
	d.Release(r)
}

// TestReleaseScansRetired tests that Release makes a final reclamation
// pass over the record's retired list.
func TestReleaseScansRetired(t *testing.T) {
	freedCount := 0
	d := New[node](func(*node) { freedCount++ })

	r := d.Acquire()
	d.Retire(r, &node{v: 1})
	d.Retire(r, &node{v: 2})
	if freedCount != 0 {
		t.Fatalf("scan ran below threshold: freed %d", freedCount)
	}
	d.Release(r)
	if freedCount != 2 {
		t.Fatalf("Release freed %d nodes, want 2", freedCount)
	}
}

// TestRecordReuse tests that Acquire hands back a released record before
// growing the list, and never hands out an active one.
func TestRecordReuse(t *testing.T) {
	d := New[node](func(*node) {})

	r1 := d.Acquire()
	d.Release(r1)

	r2 := d.Acquire()
	if r2 != r1 {
		t.Fatal("released record was not reused")
	}

	r3 := d.Acquire()
	if r3 == r2 {
		t.Fatal("active record handed out twice")
	}
	d.Release(r2)
	d.Release(r3)
}

// TestPinnedLeftoverInherited tests that nodes kept alive by a peer's
// pin stay on the record after Release and are freed by a later scan
// from whoever inherits the record.
func TestPinnedLeftoverInherited(t *testing.T) {
	freed := make(map[*node]bool)
	d := New[node](func(n *node) { freed[n] = true })

	var src atomic.Pointer[node]
	n := &node{v: 1}
	src.Store(n)

	reader := d.Acquire()
	reader.Protect(&src)

	writer := d.Acquire()
	src.Store(nil)
	d.Retire(writer, n)
	d.Release(writer)
	if freed[n] {
		t.Fatal("pinned node was freed")
	}

	reader.Clear()
	d.Release(reader)

	// The writer's record keeps the leftover; its next owner frees it on
	// the release scan. Acquire hands out records newest-first, so the
	// writer's record is the first inactive one.
	again := d.Acquire()
	if again != writer {
		t.Fatal("expected the writer's record to be reused")
	}
	d.Release(again)
	if !freed[n] {
		t.Fatal("inherited leftover was not freed")
	}
}
