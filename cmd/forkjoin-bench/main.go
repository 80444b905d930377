// Command forkjoin-bench runs the reference workloads on the fork-join
// scheduler and prints the host topology and victim assignment.
//
// Run using
//
//	go run ./cmd/forkjoin-bench <command> <flags>
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Workers are sized from the topology, but GOMAXPROCS must still cover
	// them inside CPU-limited containers.
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	defer undo()
	if err != nil {
		fmt.Fprintln(os.Stderr, "automaxprocs:", err)
	}

	app := &cli.App{
		Name:  "forkjoin-bench",
		Usage: "NUMA-aware fork-join scheduler benchmarks",
		Flags: schedulerFlags,
		Commands: []*cli.Command{
			&FibCmd,
			&SortCmd,
			&TopologyCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
