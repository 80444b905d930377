package core

// Task is the constraint satisfied by the pointer type of a task value.
//
// Task values are stored by value inside deque slots and executed in
// place, so T should hold the task's arguments and results directly:
//
//	type Fib struct {
//		N      int
//		Result int64
//	}
//
//	func (t *Fib) Execute(f *core.Frame[Fib]) { ... }
type Task[T any] interface {
	*T
	Execute(f *Frame[T])
}

// Frame is the handle a running task uses to fork and join children. It
// is owned by the executing worker and is only valid during Execute.
type Frame[T any] struct {
	w     *worker[T]
	node  *node[T]
	level int32
	// forked is set while children were spawned but not yet joined.
	forked bool
}

// Child returns zeroed storage for a new child task inside the frame's
// deque node. The child must be filled in and passed to Spawn before the
// next call to Child or Wait.
func (f *Frame[T]) Child() *T {
	s := f.node.putAllocate()
	if s == nil {
		fatalf("deque: node at depth %d overflowed its capacity of %d children",
			f.node.depth, f.node.capacity())
	}
	return &s.task
}

// Spawn publishes the child returned by the last Child call, making it
// visible to thieves.
func (f *Frame[T]) Spawn(child *T) {
	n := f.node
	if n.pending < 0 || child != &n.slots[n.pending&n.mask].task {
		fatalf("spawn: task was not obtained from the latest Child call")
	}
	level := f.level + 1
	n.putCommit(level)
	f.w.load.Add(f.w.model.weight(level))
	f.forked = true
}

// Fork copies t into a new child slot and spawns it.
func (f *Frame[T]) Fork(t T) {
	c := f.Child()
	*c = t
	f.Spawn(c)
}

// Wait blocks until every child spawned by this frame has completed.
// While waiting the worker keeps executing its own children, mailed tasks
// and tasks stolen from its victims. Child storage stays readable after
// Wait returns until the next Child call.
func (f *Frame[T]) Wait() {
	if f.node.pending >= 0 {
		fatalf("wait: child allocated but never spawned")
	}
	f.w.drain(f.node)
	f.forked = false
}

// Level returns the tree depth of the running task; the root is level 0.
func (f *Frame[T]) Level() int { return int(f.level) }

// WorkerID returns the ID of the worker executing the task.
func (f *Frame[T]) WorkerID() int { return f.w.id }
