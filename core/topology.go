package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pbnjay/memory"
)

// HWContext is one hardware thread as seen by the OS.
type HWContext struct {
	CPU    int `yaml:"cpu"`
	Node   int `yaml:"node"`
	Socket int `yaml:"socket"`
	Core   int `yaml:"core"`
	// Thread is the SMT index of the context within its core.
	Thread int `yaml:"thread"`
}

// Topology is the set of hardware contexts workers are placed on, in fill
// order: node, socket, SMT thread, core. Filling a machine partially
// therefore uses one thread of every core of a socket before any sibling.
type Topology struct {
	Contexts    []HWContext
	NUMA        bool
	TotalMemory uint64
}

var errEmptyTopology = errors.New("topology has no hardware contexts")

// NewTopology sorts contexts into fill order.
func NewTopology(contexts []HWContext, numa bool) (*Topology, error) {
	if len(contexts) == 0 {
		return nil, errEmptyTopology
	}
	cs := slices.Clone(contexts)
	slices.SortFunc(cs, func(a, b HWContext) int {
		switch {
		case a.Node != b.Node:
			return a.Node - b.Node
		case a.Socket != b.Socket:
			return a.Socket - b.Socket
		case a.Thread != b.Thread:
			return a.Thread - b.Thread
		case a.Core != b.Core:
			return a.Core - b.Core
		}
		return a.CPU - b.CPU
	})
	return &Topology{Contexts: cs, NUMA: numa, TotalMemory: memory.TotalMemory()}, nil
}

// NewSyntheticTopology builds a regular machine with one NUMA node per
// socket. CPU ids follow the usual Linux enumeration: every core's first
// thread, then every core's second thread, and so on.
func NewSyntheticTopology(sockets, coresPerSocket, threadsPerCore int) *Topology {
	if sockets < 1 {
		sockets = 1
	}
	if coresPerSocket < 1 {
		coresPerSocket = 1
	}
	if threadsPerCore < 1 {
		threadsPerCore = 1
	}
	contexts := make([]HWContext, 0, sockets*coresPerSocket*threadsPerCore)
	for s := range sockets {
		for c := range coresPerSocket {
			for t := range threadsPerCore {
				contexts = append(contexts, HWContext{
					CPU:    t*sockets*coresPerSocket + s*coresPerSocket + c,
					Node:   s,
					Socket: s,
					Core:   c,
					Thread: t,
				})
			}
		}
	}
	topo, _ := NewTopology(contexts, sockets > 1)
	return topo
}

// Select returns a topology made of the first n contexts in fill order.
func (t *Topology) Select(n int) (*Topology, error) {
	if n < 1 || n > len(t.Contexts) {
		return nil, fmt.Errorf("select %d of %d hardware contexts", n, len(t.Contexts))
	}
	return &Topology{
		Contexts:    slices.Clone(t.Contexts[:n]),
		NUMA:        t.NUMA,
		TotalMemory: t.TotalMemory,
	}, nil
}

// Flatten returns a copy with every context on node 0, for running
// without NUMA awareness.
func (t *Topology) Flatten() *Topology {
	cs := slices.Clone(t.Contexts)
	for i := range cs {
		cs[i].Node = 0
	}
	flat, _ := NewTopology(cs, false)
	flat.TotalMemory = t.TotalMemory
	return flat
}

// Nodes returns the distinct NUMA node ids in ascending order.
func (t *Topology) Nodes() []int {
	var nodes []int
	for _, c := range t.Contexts {
		if !slices.Contains(nodes, c.Node) {
			nodes = append(nodes, c.Node)
		}
	}
	slices.Sort(nodes)
	return nodes
}

// Sockets returns the distinct socket ids in ascending order.
func (t *Topology) Sockets() []int {
	var sockets []int
	for _, c := range t.Contexts {
		if !slices.Contains(sockets, c.Socket) {
			sockets = append(sockets, c.Socket)
		}
	}
	slices.Sort(sockets)
	return sockets
}

func (t *Topology) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d contexts, %d sockets, %d nodes", len(t.Contexts), len(t.Sockets()), len(t.Nodes()))
	if t.TotalMemory > 0 {
		fmt.Fprintf(&b, ", %d MiB", t.TotalMemory>>20)
	}
	return b.String()
}

// VictimFlags describes how far a worker's assigned victim is.
type VictimFlags uint8

const (
	CrossThread VictimFlags = 1 << iota
	CrossCore
	CrossSocket
)

func (f VictimFlags) String() string {
	var parts []string
	if f&CrossThread != 0 {
		parts = append(parts, "thread")
	}
	if f&CrossCore != 0 {
		parts = append(parts, "core")
	}
	if f&CrossSocket != 0 {
		parts = append(parts, "socket")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// WorkerDesc places a worker on a hardware context.
type WorkerDesc struct {
	ID       int
	CPU      int
	Node     int
	Socket   int
	Core     int
	HWThread int
	// Victim is the ID of the assigned victim, or -1.
	Victim int
	Flags  VictimFlags
}

// VictimGraph is the immutable worker placement and victim assignment.
type VictimGraph struct {
	Workers []WorkerDesc
	byCPU   map[int]int
}

// BuildVictimGraph creates one worker per context and assigns victims:
// a free sibling thread on the same core first, then the next free core
// on the same socket, then one cross-socket link per socket. A worker is
// free while nobody has picked it as victim yet.
func BuildVictimGraph(t *Topology) *VictimGraph {
	g := &VictimGraph{
		Workers: make([]WorkerDesc, len(t.Contexts)),
		byCPU:   make(map[int]int, len(t.Contexts)),
	}
	for i, c := range t.Contexts {
		g.Workers[i] = WorkerDesc{
			ID: i, CPU: c.CPU, Node: c.Node, Socket: c.Socket,
			Core: c.Core, HWThread: c.Thread, Victim: -1,
		}
		g.byCPU[c.CPU] = i
	}

	taken := make([]bool, len(g.Workers))
	linked := make(map[int]bool)
	sockets := t.Sockets()
	for i := range g.Workers {
		w := &g.Workers[i]
		if v := g.sibling(w, taken); v >= 0 {
			g.assign(w, v, CrossThread, taken)
			continue
		}
		if v := g.nextCore(w, taken); v >= 0 {
			g.assign(w, v, CrossCore, taken)
			continue
		}
		if len(sockets) > 1 && !linked[w.Socket] {
			if v := g.nextSocket(w, sockets, taken); v >= 0 {
				linked[w.Socket] = true
				g.assign(w, v, CrossSocket|CrossCore, taken)
			}
		}
	}
	return g
}

func (g *VictimGraph) assign(w *WorkerDesc, victim int, flags VictimFlags, taken []bool) {
	w.Victim = victim
	w.Flags = flags
	taken[victim] = true
}

func (g *VictimGraph) sibling(w *WorkerDesc, taken []bool) int {
	for i, o := range g.Workers {
		if i != w.ID && !taken[i] && o.Socket == w.Socket && o.Core == w.Core {
			return i
		}
	}
	return -1
}

// nextCore scans the socket's cores cyclically starting after w's core.
func (g *VictimGraph) nextCore(w *WorkerDesc, taken []bool) int {
	var cores []int
	for _, o := range g.Workers {
		if o.Socket == w.Socket && o.Core != w.Core && !slices.Contains(cores, o.Core) {
			cores = append(cores, o.Core)
		}
	}
	slices.SortFunc(cores, func(a, b int) int {
		return cyclicDistance(w.Core, a) - cyclicDistance(w.Core, b)
	})
	for _, core := range cores {
		for i, o := range g.Workers {
			if !taken[i] && o.Socket == w.Socket && o.Core == core {
				return i
			}
		}
	}
	return -1
}

func cyclicDistance(from, to int) int {
	if to > from {
		return to - from
	}
	// Wrapped cores sort after every core above from.
	return to - from + 1<<20
}

// nextSocket picks a worker on the following socket, preferring a free
// one; the cross-socket link does not require a free victim.
func (g *VictimGraph) nextSocket(w *WorkerDesc, sockets []int, taken []bool) int {
	idx := slices.Index(sockets, w.Socket)
	target := sockets[(idx+1)%len(sockets)]
	first := -1
	for i, o := range g.Workers {
		if o.Socket != target {
			continue
		}
		if !taken[i] {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// Lookup returns the worker placed on the given CPU.
func (g *VictimGraph) Lookup(cpu int) (WorkerDesc, bool) {
	i, ok := g.byCPU[cpu]
	if !ok {
		return WorkerDesc{}, false
	}
	return g.Workers[i], true
}

// Peers returns the victims worker id caches: its assigned victim first,
// then the other workers of its node by proximity (same core, then core
// distance). limit <= 0 means no bound.
func (g *VictimGraph) Peers(id, limit int) []int {
	w := g.Workers[id]
	var peers []int
	if w.Victim >= 0 {
		peers = append(peers, w.Victim)
	}
	var local []int
	for i, o := range g.Workers {
		if i != id && i != w.Victim && o.Node == w.Node {
			local = append(local, i)
		}
	}
	slices.SortStableFunc(local, func(a, b int) int {
		return g.proximity(w, g.Workers[a]) - g.proximity(w, g.Workers[b])
	})
	peers = append(peers, local...)
	if limit > 0 && len(peers) > limit {
		peers = peers[:limit]
	}
	return peers
}

func (g *VictimGraph) proximity(w, o WorkerDesc) int {
	d := 0
	if o.Socket != w.Socket {
		d += 1 << 16
	}
	if o.Core != w.Core {
		core := o.Core - w.Core
		if core < 0 {
			core = -core
		}
		d += 1 + core
	}
	return d
}

// NodeWorkers groups worker IDs by NUMA node.
func (g *VictimGraph) NodeWorkers() map[int][]int {
	out := make(map[int][]int)
	for _, w := range g.Workers {
		out[w.Node] = append(out[w.Node], w.ID)
	}
	return out
}
