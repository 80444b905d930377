package core

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// slot holds one task in place. Tasks are built directly in their slot by
// the parent and executed from it by whichever worker wins the slot.
type slot[T any] struct {
	task  T
	level int32
}

// node is one level of a worker's deque chain: a bounded Chase-Lev deque
// whose slots are used in place.
//
// top, bottom and nstolen are monotonic 64-bit counters; a slot index is
// counter & mask. The owner pushes and takes at bottom, thieves steal at
// top. nstolen counts slots that were stolen but whose task has not
// reported back through returnStolen yet. A node is exhausted once
// top >= bottom and nstolen == 0.
type node[T any] struct {
	_       cpu.CacheLinePad
	top     atomic.Int64
	_       cpu.CacheLinePad
	bottom  atomic.Int64
	_       cpu.CacheLinePad
	nstolen atomic.Int64
	// level of the tasks last published here; siblings share a level.
	level atomic.Int32
	next  atomic.Pointer[node[T]]
	_     cpu.CacheLinePad

	slots []slot[T]
	mask  int64
	depth int

	// Owner-only state below.

	// base is bottom at the last point the node was seen exhausted. While
	// thieves still hold slots, pushes may not wrap past it.
	base int64
	// pending is the index handed out by putAllocate and not yet
	// committed, or -1.
	pending int64
	frame   Frame[T]
}

func (n *node[T]) init(slots []slot[T], depth int) {
	if len(slots) == 0 || len(slots)&(len(slots)-1) != 0 {
		fatalf("deque: capacity %d is not a power of two", len(slots))
	}
	n.slots = slots
	n.mask = int64(len(slots) - 1)
	n.depth = depth
	n.pending = -1
}

func newNode[T any](capacity, depth int) *node[T] {
	n := &node[T]{}
	n.init(make([]slot[T], capacity), depth)
	return n
}

func (n *node[T]) capacity() int64 { return n.mask + 1 }

// full reports whether writing index b could overwrite a slot another
// worker may still be reading.
func (n *node[T]) full(b int64) bool {
	if b-n.top.Load() >= n.capacity() {
		return true
	}
	return n.nstolen.Load() != 0 && b-n.base >= n.capacity()
}

// putAllocate returns zeroed storage at bottom without publishing it, or
// nil when the node is full. Owner only.
func (n *node[T]) putAllocate() *slot[T] {
	if n.pending >= 0 {
		fatalf("deque: allocating a second child before spawning the first")
	}
	b := n.bottom.Load()
	if n.full(b) {
		return nil
	}
	s := &n.slots[b&n.mask]
	*s = slot[T]{}
	n.pending = b
	return s
}

// putCommit publishes the slot returned by the last putAllocate. The
// atomic store of bottom orders the slot contents before any thief can
// observe the new bottom. Owner only.
func (n *node[T]) putCommit(level int32) {
	b := n.pending
	if b < 0 {
		fatalf("deque: commit without a pending allocation")
	}
	n.slots[b&n.mask].level = level
	n.level.Store(level)
	n.pending = -1
	n.bottom.Store(b + 1)
}

// discard drops a pending allocation, e.g. after the constructing task
// panicked. Owner only.
func (n *node[T]) discard() {
	n.pending = -1
}

// take pops the newest slot. On failure it returns nil together with a
// count that is zero only when the node is exhausted. Owner only.
func (n *node[T]) take() (*slot[T], int64) {
	b := n.bottom.Load() - 1
	n.bottom.Store(b)
	t := n.top.Load()
	if t > b {
		n.bottom.Store(b + 1)
		stolen := n.nstolen.Load()
		if stolen == 0 {
			n.base = b + 1
		}
		return nil, stolen
	}
	s := &n.slots[b&n.mask]
	if t == b {
		// Last slot: race the thieves for it.
		won := n.top.CompareAndSwap(t, t+1)
		n.bottom.Store(b + 1)
		if !won {
			return nil, n.nstolen.Load() + 1
		}
	}
	return s, 0
}

// steal claims the oldest slot. wasEmpty distinguishes an empty node from
// a lost race. The slot is read only after the claim succeeded. Any worker
// except the owner.
func (n *node[T]) steal() (s *slot[T], wasEmpty bool) {
	t := n.top.Load()
	b := n.bottom.Load()
	if t >= b {
		return nil, true
	}
	n.nstolen.Add(1)
	if !n.top.CompareAndSwap(t, t+1) {
		n.nstolen.Add(-1)
		return nil, false
	}
	return &n.slots[t&n.mask], false
}

// returnStolen reports that a stolen or mailed task finished. It must be
// called exactly once per successful steal.
func (n *node[T]) returnStolen() {
	if left := n.nstolen.Add(-1); assertionsEnabled && left < 0 {
		fatalf("deque: nstolen dropped below zero at depth %d", n.depth)
	}
}

// exhausted reports top >= bottom && nstolen == 0. It is a snapshot only.
func (n *node[T]) exhausted() bool {
	return n.top.Load() >= n.bottom.Load() && n.nstolen.Load() == 0
}

// size is a racy estimate of the published slots.
func (n *node[T]) size() int64 {
	d := n.bottom.Load() - n.top.Load()
	if d < 0 {
		return 0
	}
	return d
}
