// Package workload contains reference fork-join task trees: recursive
// Fibonacci and merge sort. They double as end-to-end checks of the
// scheduler and as benchmark workloads for cmd/forkjoin-bench.
package workload

import "github.com/Swind/go-forkjoin/core"

// Fib computes the N-th Fibonacci number by spawning both recursive
// calls. Below Cutoff it recurses serially.
type Fib struct {
	N      int
	Cutoff int
	Result int64
}

func (t *Fib) Execute(f *core.Frame[Fib]) {
	if t.N < 2 || t.N <= t.Cutoff {
		t.Result = FibSerial(t.N)
		return
	}
	a := f.Child()
	*a = Fib{N: t.N - 1, Cutoff: t.Cutoff}
	f.Spawn(a)
	b := f.Child()
	*b = Fib{N: t.N - 2, Cutoff: t.Cutoff}
	f.Spawn(b)
	f.Wait()
	t.Result = a.Result + b.Result
}

// FibSerial is the naive recursive Fibonacci.
func FibSerial(n int) int64 {
	if n < 2 {
		return int64(n)
	}
	return FibSerial(n-1) + FibSerial(n-2)
}

// FibIterative is the reference used to check results.
func FibIterative(n int) int64 {
	var a, b int64 = 0, 1
	for range n {
		a, b = b, a+b
	}
	return a
}
