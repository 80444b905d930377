package core

import "sync/atomic"

// chain is a worker's stack of deque nodes indexed by execution depth.
// The frame running at depth d pushes its children into node d, so a
// node only ever holds siblings. Nodes come from the worker's arenas and
// are linked through next; thieves walk that list, the owner indexes
// nodes directly.
type chain[T any] struct {
	head     *node[T]
	nodes    []*node[T]
	capacity int
	height   atomic.Int32

	nodeArena *Arena[node[T]]
	slotArena *Arena[slot[T]]
}

func newChain[T any](capacity, height, pageBytes int) *chain[T] {
	if height < 1 {
		height = 1
	}
	c := &chain[T]{
		capacity:  capacity,
		nodeArena: NewArena[node[T]](pageBytes),
		slotArena: NewArena[slot[T]](pageBytes),
	}
	for range height {
		c.grow()
	}
	return c
}

// at returns the node for depth, growing the chain as needed. Owner only.
func (c *chain[T]) at(depth int) *node[T] {
	for depth >= len(c.nodes) {
		c.grow()
	}
	return c.nodes[depth]
}

func (c *chain[T]) grow() {
	n := c.nodeArena.Alloc()
	n.init(c.slotArena.AllocArray(c.capacity), len(c.nodes))
	if len(c.nodes) == 0 {
		c.head = n
	} else {
		c.nodes[len(c.nodes)-1].next.Store(n)
	}
	c.nodes = append(c.nodes, n)
	c.height.Store(int32(len(c.nodes)))
}

// pending is a racy count of published slots over the whole chain.
func (c *chain[T]) pending() int64 {
	var total int64
	for n := c.head; n != nil; n = n.next.Load() {
		total += n.size()
	}
	return total
}

// release returns the arenas. head stays readable for stats snapshots.
func (c *chain[T]) release() {
	c.nodes = nil
	c.nodeArena.Release()
	c.slotArena.Release()
}
