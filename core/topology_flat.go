package core

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/tklauser/numcpus"
)

// flatTopology describes the machine as a single node when nothing better
// is known: the online CPU count from numcpus and the SMT width reported
// by CPUID, with CPUs enumerated the Linux way (first threads first).
func flatTopology() (*Topology, error) {
	n, err := numcpus.GetOnline()
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	threads := cpuid.CPU.ThreadsPerCore
	if threads < 1 || n%threads != 0 {
		threads = 1
	}
	cores := n / threads
	contexts := make([]HWContext, n)
	for cpu := range contexts {
		contexts[cpu] = HWContext{
			CPU:    cpu,
			Core:   cpu % cores,
			Thread: cpu / cores,
		}
	}
	return NewTopology(contexts, false)
}
