package workload

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Swind/go-forkjoin/core"
)

func testConfig(workers int) *core.SchedulerConfig {
	cfg := core.DefaultSchedulerConfig()
	cfg.Workers = workers
	cfg.NUMA = false
	cfg.Pin = false
	cfg.Topology = core.NewSyntheticTopology(1, 8, 1)
	cfg.Logger = core.NewNoOpLogger()
	return cfg
}

func newScheduler[T any, P core.Task[T]](t *testing.T, cfg *core.SchedulerConfig) *core.Scheduler[T, P] {
	t.Helper()
	s, err := core.NewScheduler[T, P](cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func TestFibIterative(t *testing.T) {
	require := require.New(t)
	want := []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55}
	for n, v := range want {
		require.Equal(v, FibIterative(n))
		require.Equal(v, FibSerial(n))
	}
}

func TestFib(t *testing.T) {
	n := 35
	if testing.Short() {
		n = 27
	}
	for _, workers := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := newScheduler[Fib](t, testConfig(workers))
			got, err := s.Run(Fib{N: n, Cutoff: 18})
			require.NoError(t, err)
			require.Equal(t, FibIterative(n), got.Result)
		})
	}
}

func TestFib_NoCutoff(t *testing.T) {
	s := newScheduler[Fib](t, testConfig(4))
	got, err := s.Run(Fib{N: 20})
	require.NoError(t, err)
	require.Equal(t, FibIterative(20), got.Result)
	// Every call of the recursion is a task.
	var executed uint64
	for _, ws := range s.Stats().WorkerSet {
		executed += ws.Executed
	}
	require.Equal(t, uint64(2*FibIterative(21)-1), executed)
}

func TestFib_MultiNode(t *testing.T) {
	cfg := testConfig(0)
	cfg.NUMA = true
	cfg.Topology = core.NewSyntheticTopology(2, 2, 1)
	s := newScheduler[Fib](t, cfg)
	got, err := s.Run(Fib{N: 30, Cutoff: 15})
	require.NoError(t, err)
	require.Equal(t, FibIterative(30), got.Result)
	require.Equal(t, uint64(1), s.Stats().Dispatcher.Sessions)
}

func TestMergeSort(t *testing.T) {
	size := 1 << 20
	if testing.Short() {
		size = 1 << 16
	}
	for _, dist := range []Distribution{Uniform, Exponential} {
		for _, workers := range []int{1, 2, 4, 8} {
			t.Run(fmt.Sprintf("%s/workers=%d", dist, workers), func(t *testing.T) {
				require := require.New(t)
				data := GenerateInts(size, dist, uint64(workers))
				sum := Sum(data)

				s := newScheduler[MergeSort](t, testConfig(workers))
				_, err := s.Run(NewMergeSort(data, DefaultSortCutoff))
				require.NoError(err)
				require.True(slices.IsSorted(data))
				require.Equal(sum, Sum(data))
			})
		}
	}
}

func TestMergeSort_SmallCutoff(t *testing.T) {
	require := require.New(t)
	data := GenerateInts(10_000, Uniform, 7)
	want := slices.Clone(data)
	slices.Sort(want)

	s := newScheduler[MergeSort](t, testConfig(4))
	_, err := s.Run(NewMergeSort(data, 2))
	require.NoError(err)
	require.Equal(want, data)
}

func TestMerge(t *testing.T) {
	dst := make([]int64, 7)
	merge(dst, []int64{1, 4, 9}, []int64{2, 3, 10, 11})
	require.Equal(t, []int64{1, 2, 3, 4, 9, 10, 11}, dst)
}

func TestGenerateInts(t *testing.T) {
	require := require.New(t)
	a := GenerateInts(1000, Uniform, 42)
	b := GenerateInts(1000, Uniform, 42)
	require.Equal(a, b, "same seed, same values")
	require.NotEqual(a, GenerateInts(1000, Uniform, 43))

	for _, v := range GenerateInts(1000, Exponential, 1) {
		require.GreaterOrEqual(v, int64(0))
	}
}
