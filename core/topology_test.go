package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyntheticTopology_FillOrder(t *testing.T) {
	require := require.New(t)
	topo := NewSyntheticTopology(2, 2, 2)
	require.Len(topo.Contexts, 8)
	require.Equal([]int{0, 1}, topo.Nodes())

	// Socket 0 first, one thread per core before the siblings.
	var cpus []int
	for _, c := range topo.Contexts {
		cpus = append(cpus, c.CPU)
	}
	require.Equal([]int{0, 1, 4, 5, 2, 3, 6, 7}, cpus)

	sel, err := topo.Select(3)
	require.NoError(err)
	require.Len(sel.Contexts, 3)
	require.Equal([]int{0}, sel.Nodes())

	_, err = topo.Select(9)
	require.Error(err)
}

func TestTopology_Flatten(t *testing.T) {
	flat := NewSyntheticTopology(2, 2, 1).Flatten()
	require.Equal(t, []int{0}, flat.Nodes())
	require.Equal(t, []int{0, 1}, flat.Sockets())
}

// Every worker has a victim except at most one per socket, and nobody is
// its own victim.
func TestVictimGraph_AssignmentInvariant(t *testing.T) {
	for sockets := 1; sockets <= 4; sockets++ {
		for cores := 1; cores <= 6; cores++ {
			for threads := 1; threads <= 4; threads++ {
				name := fmt.Sprintf("%dx%dx%d", sockets, cores, threads)
				t.Run(name, func(t *testing.T) {
					topo := NewSyntheticTopology(sockets, cores, threads)
					for n := 1; n <= len(topo.Contexts); n++ {
						sel, err := topo.Select(n)
						require.NoError(t, err)
						checkVictimInvariant(t, BuildVictimGraph(sel))
					}
				})
			}
		}
	}
}

func checkVictimInvariant(t *testing.T, g *VictimGraph) {
	t.Helper()
	missing := map[int]int{}
	crossLinks := map[int]int{}
	for _, w := range g.Workers {
		if w.Victim < 0 {
			missing[w.Socket]++
			continue
		}
		require.NotEqual(t, w.ID, w.Victim, "worker %d is its own victim", w.ID)
		v := g.Workers[w.Victim]
		switch {
		case w.Flags&CrossSocket != 0:
			require.NotEqual(t, w.Socket, v.Socket)
			crossLinks[w.Socket]++
		case w.Flags&CrossThread != 0:
			require.Equal(t, w.Core, v.Core)
			require.Equal(t, w.Socket, v.Socket)
		case w.Flags&CrossCore != 0:
			require.NotEqual(t, w.Core, v.Core)
			require.Equal(t, w.Socket, v.Socket)
		}
	}
	for socket, n := range missing {
		require.LessOrEqual(t, n, 1, "socket %d has %d workers without victim", socket, n)
	}
	for socket, n := range crossLinks {
		require.LessOrEqual(t, n, 1, "socket %d has %d cross-socket links", socket, n)
	}
}

func TestVictimGraph_PrefersSiblingThenCore(t *testing.T) {
	require := require.New(t)
	g := BuildVictimGraph(NewSyntheticTopology(1, 2, 2))
	// Fill order: c0t0, c1t0, c0t1, c1t1.
	require.Equal(2, g.Workers[0].Victim)
	require.Equal(CrossThread, g.Workers[0].Flags)
	require.Equal(3, g.Workers[1].Victim)

	cores := BuildVictimGraph(NewSyntheticTopology(1, 3, 1))
	require.Equal(1, cores.Workers[0].Victim)
	require.Equal(2, cores.Workers[1].Victim)
	require.Equal(0, cores.Workers[2].Victim)
	require.Equal(CrossCore, cores.Workers[2].Flags)
}

func TestVictimGraph_CrossSocketLink(t *testing.T) {
	require := require.New(t)
	g := BuildVictimGraph(NewSyntheticTopology(2, 1, 1))
	require.Equal(1, g.Workers[0].Victim)
	require.NotZero(g.Workers[0].Flags & CrossSocket)
	require.Equal(0, g.Workers[1].Victim)
	require.Equal("core|socket", g.Workers[1].Flags.String())
}

func TestVictimGraph_LookupAndPeers(t *testing.T) {
	require := require.New(t)
	g := BuildVictimGraph(NewSyntheticTopology(2, 2, 2))

	w, ok := g.Lookup(4)
	require.True(ok)
	require.Equal(0, w.Core)
	require.Equal(1, w.HWThread)
	_, ok = g.Lookup(42)
	require.False(ok)

	peers := g.Peers(0, 0)
	require.Equal(g.Workers[0].Victim, peers[0], "assigned victim comes first")
	require.Len(peers, 3, "only the workers of node 0")
	for _, id := range peers {
		require.Equal(0, g.Workers[id].Node)
	}
	require.Len(g.Peers(0, 2), 2)

	nodes := g.NodeWorkers()
	require.Len(nodes, 2)
	require.Len(nodes[1], 4)
}

func TestParseCPUList(t *testing.T) {
	require := require.New(t)
	cpus, err := parseCPUList("0-3,8,10-11\n")
	require.NoError(err)
	require.Equal([]int{0, 1, 2, 3, 8, 10, 11}, cpus)

	cpus, err = parseCPUList("")
	require.NoError(err)
	require.Empty(cpus)

	_, err = parseCPUList("3-1")
	require.Error(err)
	_, err = parseCPUList("a")
	require.Error(err)
}

func TestDiscoverTopology(t *testing.T) {
	topo, err := DiscoverTopology(true)
	require.NoError(t, err)
	require.NotEmpty(t, topo.Contexts)
	g := BuildVictimGraph(topo)
	require.Len(t, g.Workers, len(topo.Contexts))
}
