package core

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
)

const (
	// spinBudget is the number of empty polls before a worker yields.
	spinBudget = 64
	// yieldBudget is the number of yields before a background worker
	// starts sleeping between polls.
	yieldBudget = 256
	idleSleep   = 50 * time.Microsecond
)

// stealCursor remembers where the steal loop left off: which victim, which
// node of its chain, and how many slots were taken from that node.
type stealCursor[T any] struct {
	victim int
	node   *node[T]
	taken  int
}

// worker owns one deque chain and runs on one pinned OS thread. Worker 0
// is the master: it is driven by Run instead of a background loop.
type worker[T any] struct {
	id   int
	desc WorkerDesc
	eng  *engine[T]

	chain   *chain[T]
	model   loadModel
	victims []*worker[T]
	cursor  stealCursor[T]
	mailbox mailbox[T]

	// load is the weighted amount of queued work; updated by the owner on
	// push and take, by thieves on steal and by the dispatcher on mail.
	load atomic.Int64
	// assigned is set while the worker executes a task tree; the
	// dispatcher only mails to unassigned workers.
	assigned atomic.Bool
	// stealAllowed gates stealing during dispatcher ramp-up.
	stealAllowed atomic.Bool

	executed      atomic.Uint64
	stolen        atomic.Uint64
	stealAttempts atomic.Uint64
	mailed        atomic.Uint64
	panics        atomic.Uint64
}

func newWorker[T any](eng *engine[T], desc WorkerDesc) *worker[T] {
	cfg := eng.cfg
	return &worker[T]{
		id:    desc.ID,
		desc:  desc,
		eng:   eng,
		chain: newChain[T](cfg.Degree, cfg.Height, cfg.ArenaPageBytes),
		model: eng.model,
	}
}

// execute runs s in place at the given depth: children of the task go
// into chain node depth. A frame left with spawned children is joined
// before the node is reused.
func (w *worker[T]) execute(s *slot[T], depth int) {
	n := w.chain.at(depth)
	if assertionsEnabled && !n.exhausted() {
		fatalf("worker %d: node at depth %d reused before its children completed", w.id, depth)
	}
	f := &n.frame
	f.w = w
	f.node = n
	f.level = s.level
	f.forked = false

	// Depth 0 is only reached from the background loop.
	root := depth == 0
	if root {
		w.assigned.Store(true)
	}
	w.executed.Add(1)
	if !w.invoke(&s.task, f) {
		n.discard()
	}
	if f.forked {
		f.Wait()
	}
	if root {
		w.assigned.Store(false)
	}
}

// invoke calls the task and recovers ordinary panics. It reports false if
// the task panicked.
func (w *worker[T]) invoke(t *T, f *Frame[T]) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, fatal := r.(*InvariantError); fatal {
				panic(r)
			}
			w.panics.Add(1)
			w.eng.panicHandler.HandlePanic(w.eng.id, w.id, int(f.level), r, debug.Stack())
			w.eng.metrics.RecordTaskPanic(w.eng.id, w.id, r)
			ok = false
		}
	}()
	w.eng.exec(t, f)
	return true
}

// drain is the wait loop of the frame owning n: pop own children first,
// then mail, then steal, until n is exhausted.
func (w *worker[T]) drain(n *node[T]) {
	depth := n.depth + 1
	misses := 0
	for {
		s, outstanding := n.take()
		if s != nil {
			w.load.Add(-w.model.weight(s.level))
			w.execute(s, depth)
			misses = 0
			continue
		}
		if outstanding == 0 {
			return
		}
		if w.runMail(depth) || w.trySteal(depth) {
			misses = 0
			continue
		}
		w.backoff(&misses, false)
	}
}

// runMail executes a task parked in the mailbox, if there is one.
func (w *worker[T]) runMail(depth int) bool {
	s, origin, ok := w.mailbox.take()
	if !ok {
		return false
	}
	w.load.Add(-w.model.weight(s.level))
	w.mailed.Add(1)
	w.execute(s, depth)
	origin.returnStolen()
	return true
}

// trySteal makes one steal attempt against the current victim. It walks
// the victim's chain from the shallowest node, moves one node deeper
// after StealQuota successes or when a node is empty, and moves to the
// next victim at the end of a chain.
func (w *worker[T]) trySteal(depth int) bool {
	if len(w.victims) == 0 || !w.stealAllowed.Load() {
		return false
	}
	c := &w.cursor
	v := w.victims[c.victim]
	if c.node == nil {
		c.node = v.chain.head
		c.taken = 0
	}
	w.stealAttempts.Add(1)

	origin := c.node
	s, empty := origin.steal()
	if s == nil {
		if empty {
			w.advance(c)
		}
		return false
	}

	v.load.Add(-w.model.weight(s.level))
	w.stolen.Add(1)
	w.eng.metrics.RecordSteal(w.eng.id, w.id, v.id, int(s.level))
	if c.taken++; c.taken >= w.eng.cfg.StealQuota {
		w.advance(c)
	}
	// The cursor is settled before executing: nested waits steal too.
	w.execute(s, depth)
	origin.returnStolen()
	return true
}

func (w *worker[T]) advance(c *stealCursor[T]) {
	c.taken = 0
	if c.node != nil {
		c.node = c.node.next.Load()
	}
	if c.node == nil {
		c.victim = (c.victim + 1) % len(w.victims)
	}
}

// backoff spins, then yields, then (background loop only) sleeps.
func (w *worker[T]) backoff(misses *int, background bool) {
	*misses++
	switch {
	case *misses < spinBudget:
	case !background || *misses < spinBudget+yieldBudget:
		runtime.Gosched()
	default:
		time.Sleep(idleSleep)
	}
}

// stealLoop is the background loop of a non-master worker: a wait that
// never finishes. Tasks found here run at depth 0.
func (w *worker[T]) stealLoop() {
	misses := 0
	for !w.eng.halted.Load() {
		if w.mailbox.empty() && (len(w.victims) == 0 || !w.stealAllowed.Load()) {
			w.backoff(&misses, true)
			continue
		}
		if w.runMail(0) || w.trySteal(0) {
			misses = 0
			continue
		}
		w.backoff(&misses, true)
	}
	// A task mailed just before halting still has to report back.
	w.runMail(0)
}

func (w *worker[T]) stats() WorkerStats {
	return WorkerStats{
		ID:            w.id,
		CPU:           w.desc.CPU,
		Node:          w.desc.Node,
		Socket:        w.desc.Socket,
		Core:          w.desc.Core,
		HWThread:      w.desc.HWThread,
		Victim:        w.desc.Victim,
		Victims:       len(w.victims),
		Load:          w.load.Load(),
		Pending:       w.chain.pending(),
		ChainHeight:   int(w.chain.height.Load()),
		Assigned:      w.assigned.Load(),
		StealAllowed:  w.stealAllowed.Load(),
		Executed:      w.executed.Load(),
		Stolen:        w.stolen.Load(),
		StealAttempts: w.stealAttempts.Load(),
		Mailed:        w.mailed.Load(),
		Panics:        w.panics.Load(),
	}
}
