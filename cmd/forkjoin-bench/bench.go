package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-forkjoin/core"
	"github.com/Swind/go-forkjoin/workload"
)

var (
	runsFlag = cli.IntFlag{
		Name:  "runs",
		Usage: "number of measured runs",
		Value: 10,
	}
	fibNFlag = cli.IntFlag{
		Name:  "n",
		Usage: "Fibonacci number to compute",
		Value: 40,
	}
	fibCutoffFlag = cli.IntFlag{
		Name:  "cutoff",
		Usage: "compute serially at or below this n",
		Value: 20,
	}
	sortSizeFlag = cli.IntFlag{
		Name:  "size",
		Usage: "number of values to sort",
		Value: 1 << 24,
	}
	sortCutoffFlag = cli.IntFlag{
		Name:  "cutoff",
		Usage: "sort serially at or below this length",
		Value: workload.DefaultSortCutoff,
	}
	sortDistFlag = cli.StringFlag{
		Name:  "dist",
		Usage: "value distribution: uniform or exponential",
		Value: string(workload.Uniform),
	}
	seedFlag = cli.Uint64Flag{
		Name:  "seed",
		Usage: "seed of the value generator",
		Value: 1,
	}
)

var FibCmd = cli.Command{
	Action: doFib,
	Name:   "fib",
	Usage:  "computes Fibonacci numbers by binary recursion",
	Flags: []cli.Flag{
		&runsFlag,
		&fibNFlag,
		&fibCutoffFlag,
	},
}

var SortCmd = cli.Command{
	Action: doSort,
	Name:   "sort",
	Usage:  "merge sorts pseudo-random values",
	Flags: []cli.Flag{
		&runsFlag,
		&sortSizeFlag,
		&sortCutoffFlag,
		&sortDistFlag,
		&seedFlag,
	},
}

func doFib(c *cli.Context) error {
	cfg, err := schedulerConfig(c)
	if err != nil {
		return err
	}
	n, cutoff := c.Int(fibNFlag.Name), c.Int(fibCutoffFlag.Name)
	want := workload.FibIterative(n)
	return benchmark(c, fmt.Sprintf("fib(%d)", n), cfg,
		func(int) workload.Fib { return workload.Fib{N: n, Cutoff: cutoff} },
		func(got workload.Fib) error {
			if got.Result != want {
				return fmt.Errorf("fib(%d) = %d, want %d", n, got.Result, want)
			}
			return nil
		})
}

func doSort(c *cli.Context) error {
	cfg, err := schedulerConfig(c)
	if err != nil {
		return err
	}
	size, cutoff := c.Int(sortSizeFlag.Name), c.Int(sortCutoffFlag.Name)
	dist := workload.Distribution(c.String(sortDistFlag.Name))
	if dist != workload.Uniform && dist != workload.Exponential {
		return fmt.Errorf("unknown distribution %q", dist)
	}
	seed := c.Uint64(seedFlag.Name)

	var sum int64
	return benchmark(c, fmt.Sprintf("sort(%d, %s)", size, dist), cfg,
		func(run int) workload.MergeSort {
			data := workload.GenerateInts(size, dist, seed+uint64(run))
			sum = workload.Sum(data)
			return workload.NewMergeSort(data, cutoff)
		},
		func(got workload.MergeSort) error {
			if !slices.IsSorted(got.Data) {
				return errors.New("result is not sorted")
			}
			if workload.Sum(got.Data) != sum {
				return errors.New("result lost values")
			}
			return nil
		})
}

// benchmark runs one scheduler for every measured run and prints a
// summary of the run records.
func benchmark[T any, P core.Task[T]](c *cli.Context, name string, cfg *core.SchedulerConfig, root func(run int) T, check func(T) error) error {
	runs := c.Int(runsFlag.Name)
	if runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", runs)
	}
	if cfg.HistorySize < runs {
		cfg.HistorySize = runs
	}

	obs, err := startMetrics(c, cfg)
	if err != nil {
		return err
	}
	defer obs.stop()

	sched, err := core.NewScheduler[T, P](cfg)
	if err != nil {
		return err
	}
	if err := sched.Start(c.Context); err != nil {
		return err
	}
	defer sched.Stop()
	obs.watch(sched)

	for run := range runs {
		got, err := sched.Run(root(run))
		if err != nil {
			return err
		}
		if err := check(got); err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
	}

	report(name, sched.Stats(), sched.RecentRuns(runs))
	return nil
}

func report(name string, stats core.SchedulerStats, records []core.RunRecord) {
	durations := make([]time.Duration, 0, len(records))
	var total time.Duration
	var steals, mailed uint64
	for _, r := range records {
		durations = append(durations, r.Duration)
		total += r.Duration
		steals += r.Steals
		mailed += r.Mailed
	}
	slices.Sort(durations)
	n := len(durations)

	fmt.Printf("%s on %d workers, %d nodes\n", name, stats.Workers, stats.Nodes)
	fmt.Printf("  runs:   %d\n", n)
	fmt.Printf("  min:    %v\n", durations[0])
	fmt.Printf("  median: %v\n", durations[n/2])
	fmt.Printf("  mean:   %v\n", total/time.Duration(n))
	fmt.Printf("  steals: %d per run\n", steals/uint64(n))
	if stats.Dispatcher.Enabled {
		fmt.Printf("  mailed: %d per run (%d ramp-up timeouts)\n", mailed/uint64(n), stats.Dispatcher.RampUpTimeouts)
	}
}
