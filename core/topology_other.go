//go:build !linux

package core

// DiscoverTopology returns the flat CPUID based layout; NUMA information
// is only read on Linux.
func DiscoverTopology(numa bool) (*Topology, error) {
	return flatTopology()
}
