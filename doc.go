// Package forkjoin provides a work-stealing fork-join scheduler for
// NUMA machines.
//
// Programs describe recursive divide-and-conquer work as a tree of tasks.
// A task is a plain value type whose pointer implements Execute; it forks
// children into its frame and joins them with Wait. One worker per
// hardware context runs the tree, pinned to its CPU, and keeps busy by
// stealing from the other workers of its NUMA node. On multi-node
// machines a dispatcher spreads the top of the tree across nodes.
//
// # Quick Start
//
//	type Fib struct {
//		N      int
//		Result int64
//	}
//
//	func (t *Fib) Execute(f *forkjoin.Frame[Fib]) {
//		if t.N < 2 {
//			t.Result = int64(t.N)
//			return
//		}
//		a := f.Child()
//		*a = Fib{N: t.N - 1}
//		f.Spawn(a)
//		b := f.Child()
//		*b = Fib{N: t.N - 2}
//		f.Spawn(b)
//		f.Wait()
//		t.Result = a.Result + b.Result
//	}
//
//	sched, err := forkjoin.New[Fib](forkjoin.DefaultConfig())
//	if err != nil { ... }
//	if err := sched.Start(ctx); err != nil { ... }
//	defer sched.Stop()
//	root, err := sched.Run(Fib{N: 35})
//
// # Key Concepts
//
// Frame: the handle of a running task. Child returns storage for a child
// inside the worker's deque, Spawn publishes it, Wait joins every child
// spawned so far. Children spawned without a Wait are joined when Execute
// returns.
//
// Deque chain: every worker owns one bounded deque per execution depth.
// The owner pops newest-first, thieves steal oldest-first.
//
// Topology: workers are placed on hardware contexts and each gets an
// assigned victim: a sibling hyper-thread, else the next core, else one
// link per socket to the next socket.
//
// # Thread Safety
//
// Run may be called from any goroutine; calls are serialized and the
// caller acts as the master worker. Task values are executed in place:
// a task must not keep pointers to its children past the next Child call.
package forkjoin
