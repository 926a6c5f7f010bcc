// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hazard implements hazard-pointer protection for lock-free
// linked structures that recycle nodes.
//
// Ownership contract:
// A node is freed (handed to the domain's free callback) only after a
// scan of every published hazard slot proves no reader can still
// dereference it. Readers publish the pointer they are about to
// dereference through Record.Protect before touching it; writers that
// unlink a node pass it to Domain.Retire instead of freeing directly.
//
// Records are allocated once and reused: Acquire claims an inactive
// record or links a new one into the domain's record list, and Release
// returns it. Records are never unlinked, so walking the list during a
// scan needs no synchronization beyond the list head.
//
// Hazard slots use sync/atomic.Pointer rather than the atomix types:
// publication requires a sequentially consistent store-then-load (the
// slot store must be visible before the validating reload of the
// source), which the standard library guarantees and relaxed or
// acquire-release orderings do not.
package hazard

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// retireThreshold is the retired-node count that triggers a scan.
const retireThreshold = 64

// pad is cache line padding to prevent false sharing between records.
type pad [64]byte

// Record is one participant's hazard slot plus its private retired list.
//
// A record is owned by at most one goroutine between Acquire and
// Release. The retired list is touched only by the owner; the slot is
// written by the owner and read by scanning peers.
type Record[T any] struct {
	_      pad
	slot   atomic.Pointer[T]
	_      pad
	active atomix.Uint64
	next   *Record[T]
	// retired holds unlinked nodes awaiting liveness proof.
	retired []*T
}

// Protect publishes the current value of src as this record's hazard
// and returns it once the publication is validated. A nil result means
// src was nil; the caller must not dereference it.
//
// The returned node cannot be freed by any Retire until the record's
// slot moves on (another Protect, Clear, or Release).
func (r *Record[T]) Protect(src *atomic.Pointer[T]) *T {
	sw := spin.Wait{}
	for {
		p := src.Load()
		r.slot.Store(p)
		if src.Load() == p {
			return p
		}
		sw.Once()
	}
}

// Clear unpublishes the record's hazard.
func (r *Record[T]) Clear() {
	r.slot.Store(nil)
}

// Domain tracks the hazard records and retired nodes of one container
// instance.
type Domain[T any] struct {
	records atomic.Pointer[Record[T]]
	free    func(*T)
}

// New creates a domain. Nodes that pass the liveness scan are handed to
// free, which typically resets them and returns them to a pool.
func New[T any](free func(*T)) *Domain[T] {
	return &Domain[T]{free: free}
}

// Acquire claims a hazard record for the calling goroutine, reusing an
// inactive one when available.
func (d *Domain[T]) Acquire() *Record[T] {
	for r := d.records.Load(); r != nil; r = r.next {
		if r.active.LoadAcquire() != 0 {
			continue
		}
		if r.active.CompareAndSwapAcqRel(0, 1) {
			return r
		}
	}

	r := &Record[T]{}
	r.active.StoreRelaxed(1)
	for {
		head := d.records.Load()
		r.next = head
		if d.records.CompareAndSwap(head, r) {
			return r
		}
	}
}

// Release unpublishes the record's hazard, makes a final reclamation
// attempt on its retired list, and marks it reusable. Retired nodes
// still pinned by peers stay on the record and are reclaimed by a later
// owner's scans.
func (d *Domain[T]) Release(r *Record[T]) {
	r.slot.Store(nil)
	if len(r.retired) > 0 {
		d.scan(r)
	}
	r.active.StoreRelease(0)
}

// Retire hands an unlinked node to the record's retired list. Once the
// list reaches the scan threshold, nodes no peer has pinned are freed.
//
// The caller must have already unlinked the node: Retire assumes no new
// reader can reach it through the structure.
func (d *Domain[T]) Retire(r *Record[T], p *T) {
	r.retired = append(r.retired, p)
	if len(r.retired) >= retireThreshold {
		d.scan(r)
	}
}

// scan frees every node in r's retired list that no published hazard
// slot references.
func (d *Domain[T]) scan(r *Record[T]) {
	var hazards []*T
	for rec := d.records.Load(); rec != nil; rec = rec.next {
		if p := rec.slot.Load(); p != nil {
			hazards = append(hazards, p)
		}
	}

	keep := r.retired[:0]
	for _, p := range r.retired {
		if pinned(hazards, p) {
			keep = append(keep, p)
			continue
		}
		d.free(p)
	}
	// Drop stale references past the new length so the pool owns them
	// exclusively.
	for i := len(keep); i < len(r.retired); i++ {
		r.retired[i] = nil
	}
	r.retired = keep
}

// ReclaimAll frees every retired node on every record unconditionally.
//
// Quiescent use only: the caller must guarantee no operation is in
// flight on the owning container and no record is held, otherwise a
// pinned node could be freed under a reader.
func (d *Domain[T]) ReclaimAll() {
	for rec := d.records.Load(); rec != nil; rec = rec.next {
		for i, p := range rec.retired {
			d.free(p)
			rec.retired[i] = nil
		}
		rec.retired = rec.retired[:0]
	}
}

// pinned reports whether p appears in the hazard snapshot. The snapshot
// is small (one entry per concurrently active record), so a linear scan
// beats building a set.
func pinned[T any](hazards []*T, p *T) bool {
	for _, h := range hazards {
		if h == p {
			return true
		}
	}
	return false
}
