// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lockfree

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// PoolStats reports node traffic through a container's internal pool.
//
// The linked containers (BlockingQueue, SPSCQueue, Stack) allocate one
// node per element from a recycling pool. PoolStats exposes the pool's
// counters so callers and tests can verify conservation: every node
// handed out is eventually returned once the container is drained and,
// for Stack, Reclaim has flushed the deferred-free backlog.
//
// Counters are updated atomically but read individually; a snapshot
// taken during concurrent operation is advisory, exact when quiescent.
type PoolStats struct {
	// Allocs is the number of nodes handed out (pool hits plus Misses).
	Allocs int64
	// Frees is the number of nodes returned to the pool.
	Frees int64
	// Misses is the number of fresh heap allocations (pool was empty).
	Misses int64
}

// Live returns the number of nodes currently held outside the pool.
func (s PoolStats) Live() int64 {
	return s.Allocs - s.Frees
}

// nodePool recycles container nodes through a sync.Pool and counts the
// traffic. Callers must reset a node's fields before put: the pool
// hands nodes back out as-is.
type nodePool[P any] struct {
	pool   sync.Pool
	allocs atomix.Int64
	frees  atomix.Int64
	misses atomix.Int64
}

func newNodePool[P any]() *nodePool[P] {
	p := &nodePool[P]{}
	p.pool.New = func() any {
		p.misses.Add(1)
		return new(P)
	}
	return p
}

func (p *nodePool[P]) get() *P {
	p.allocs.Add(1)
	return p.pool.Get().(*P)
}

func (p *nodePool[P]) put(n *P) {
	p.frees.Add(1)
	p.pool.Put(n)
}

func (p *nodePool[P]) stats() PoolStats {
	return PoolStats{
		Allocs: p.allocs.Load(),
		Frees:  p.frees.Load(),
		Misses: p.misses.Load(),
	}
}
