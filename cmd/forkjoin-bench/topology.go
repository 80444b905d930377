package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Swind/go-forkjoin/core"
)

var yamlFlag = cli.BoolFlag{
	Name:  "yaml",
	Usage: "dump the hardware contexts as YAML",
}

var cpuFlag = cli.IntFlag{
	Name:  "cpu",
	Usage: "only print the worker placed on this CPU",
	Value: -1,
}

var TopologyCmd = cli.Command{
	Action: doTopology,
	Name:   "topology",
	Usage:  "prints the worker placement and victim assignment",
	Flags: []cli.Flag{
		&yamlFlag,
		&cpuFlag,
	},
}

// noop lets the topology command build a scheduler without running one.
type noop struct{}

func (*noop) Execute(*core.Frame[noop]) {}

func doTopology(c *cli.Context) error {
	cfg, err := schedulerConfig(c)
	if err != nil {
		return err
	}
	sched, err := core.NewScheduler[noop](cfg)
	if err != nil {
		return err
	}
	topo := sched.Topology()

	if c.Bool(yamlFlag.Name) {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(topo.Contexts)
	}

	graph := sched.VictimGraph()
	if cpu := c.Int(cpuFlag.Name); cpu >= 0 {
		d, ok := graph.Lookup(cpu)
		if !ok {
			return fmt.Errorf("no worker on cpu %d", cpu)
		}
		fmt.Printf("cpu %d: worker %d on node %d, socket %d, core %d, thread %d\n",
			cpu, d.ID, d.Node, d.Socket, d.Core, d.HWThread)
		return nil
	}

	fmt.Println(topo)
	nodes := graph.NodeWorkers()
	ids := make([]int, 0, len(nodes))
	for node := range nodes {
		ids = append(ids, node)
	}
	slices.Sort(ids)
	for _, node := range ids {
		fmt.Printf("node %d: workers %s\n", node, joinInts(nodes[node]))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tCPU\tNODE\tSOCKET\tCORE\tTHREAD\tVICTIM\tVIA\tPEERS")
	for _, d := range graph.Workers {
		victim := "-"
		if d.Victim >= 0 {
			victim = fmt.Sprint(d.Victim)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			d.ID, d.CPU, d.Node, d.Socket, d.Core, d.HWThread, victim, d.Flags,
			joinInts(graph.Peers(d.ID, cfg.MaxVictims)))
	}
	return w.Flush()
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
