//go:build linux

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	sysCPUPath  = "/sys/devices/system/cpu"
	sysNodePath = "/sys/devices/system/node"
)

// DiscoverTopology reads the machine layout from sysfs. With numa unset,
// or when node information is missing, every context lands on node 0.
// If sysfs is unusable the flat CPUID based layout is returned.
func DiscoverTopology(numa bool) (*Topology, error) {
	topo, err := readSysfsTopology(sysCPUPath, sysNodePath, numa)
	if err != nil {
		return flatTopology()
	}
	return topo, nil
}

func readSysfsTopology(cpuRoot, nodeRoot string, numa bool) (*Topology, error) {
	online, err := os.ReadFile(filepath.Join(cpuRoot, "online"))
	if err != nil {
		return nil, err
	}
	cpus, err := parseCPUList(string(online))
	if err != nil {
		return nil, err
	}

	nodeOf := map[int]int{}
	if numa {
		nodeOf, err = readNodeMap(nodeRoot)
		if err != nil || len(nodeOf) == 0 {
			numa = false
			nodeOf = map[int]int{}
		}
	}

	type coreKey struct{ socket, core int }
	byCore := map[coreKey][]int{}
	contexts := make([]HWContext, 0, len(cpus))
	for _, cpu := range cpus {
		dir := filepath.Join(cpuRoot, fmt.Sprintf("cpu%d", cpu), "topology")
		socket, err := readIntFile(filepath.Join(dir, "physical_package_id"))
		if err != nil {
			return nil, err
		}
		core, err := readIntFile(filepath.Join(dir, "core_id"))
		if err != nil {
			return nil, err
		}
		key := coreKey{socket, core}
		byCore[key] = append(byCore[key], cpu)
		contexts = append(contexts, HWContext{CPU: cpu, Node: nodeOf[cpu], Socket: socket, Core: core})
	}
	// SMT index = rank of the CPU id among its core's siblings.
	for i := range contexts {
		c := &contexts[i]
		siblings := byCore[coreKey{c.Socket, c.Core}]
		slices.Sort(siblings)
		c.Thread = slices.Index(siblings, c.CPU)
	}
	return NewTopology(contexts, numa)
}

func readNodeMap(nodeRoot string) (map[int]int, error) {
	dirs, err := filepath.Glob(filepath.Join(nodeRoot, "node[0-9]*"))
	if err != nil {
		return nil, err
	}
	nodeOf := make(map[int]int)
	for _, dir := range dirs {
		id, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(dir), "node"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "cpulist"))
		if err != nil {
			return nil, err
		}
		cpus, err := parseCPUList(string(raw))
		if err != nil {
			return nil, err
		}
		for _, cpu := range cpus {
			nodeOf[cpu] = id
		}
	}
	return nodeOf, nil
}

func readIntFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(raw)))
}
