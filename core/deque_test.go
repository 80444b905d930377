package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	ID int
}

func push(t *testing.T, n *node[item], id int) bool {
	t.Helper()
	s := n.putAllocate()
	if s == nil {
		return false
	}
	s.task.ID = id
	n.putCommit(1)
	return true
}

func TestDeque_OwnerTakesNewestFirst(t *testing.T) {
	require := require.New(t)
	n := newNode[item](8, 0)
	for id := 1; id <= 8; id++ {
		require.True(push(t, n, id))
	}
	require.Nil(n.putAllocate(), "a full node must refuse a ninth slot")

	for want := 8; want >= 1; want-- {
		s, _ := n.take()
		require.NotNil(s)
		require.Equal(want, s.task.ID)
	}
	s, outstanding := n.take()
	require.Nil(s)
	require.Zero(outstanding)
	require.True(n.exhausted())
}

func TestDeque_ThiefStealsOldestFirst(t *testing.T) {
	require := require.New(t)
	n := newNode[item](8, 0)
	for id := 1; id <= 8; id++ {
		require.True(push(t, n, id))
	}
	for want := 1; want <= 8; want++ {
		s, empty := n.steal()
		require.False(empty)
		require.NotNil(s)
		require.Equal(want, s.task.ID)
	}
	s, empty := n.steal()
	require.Nil(s)
	require.True(empty)

	// Stolen slots keep the node busy until they are returned.
	require.False(n.exhausted())
	_, outstanding := n.take()
	require.Equal(int64(8), outstanding)
	for range 8 {
		n.returnStolen()
	}
	require.True(n.exhausted())
}

func TestDeque_CommitStampsLevel(t *testing.T) {
	require := require.New(t)
	n := newNode[item](2, 3)
	s := n.putAllocate()
	require.NotNil(s)
	n.putCommit(4)
	require.Equal(int32(4), n.level.Load())
	got, _ := n.take()
	require.Same(s, got)
	require.Equal(int32(4), got.level)
}

func TestDeque_SecondAllocationWithoutCommitPanics(t *testing.T) {
	n := newNode[item](4, 0)
	require.NotNil(t, n.putAllocate())
	require.PanicsWithError(t,
		"forkjoin: invariant violated: deque: allocating a second child before spawning the first",
		func() { n.putAllocate() })
}

func TestDeque_NonPowerOfTwoCapacityPanics(t *testing.T) {
	require.Panics(t, func() { newNode[item](6, 0) })
}

// Push n items in batches while thieves steal; every item must be consumed
// exactly once.
func testConservation(t *testing.T, thieves, total int) {
	require := require.New(t)
	n := newNode[item](256, 0)
	seen := make([]atomic.Int32, total)
	var done atomic.Bool
	var wg sync.WaitGroup

	for range thieves {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !done.Load() {
				s, _ := n.steal()
				if s == nil {
					continue
				}
				seen[s.task.ID].Add(1)
				n.returnStolen()
			}
		}()
	}

	next := 0
	for next < total {
		for next < total && push(t, n, next) {
			next++
		}
		// Take a few from the bottom, leaving the rest to thieves.
		for range 16 {
			s, _ := n.take()
			if s == nil {
				break
			}
			seen[s.task.ID].Add(1)
		}
	}
	for {
		s, outstanding := n.take()
		if s != nil {
			seen[s.task.ID].Add(1)
			continue
		}
		if outstanding == 0 {
			break
		}
	}
	done.Store(true)
	wg.Wait()

	for id := range seen {
		require.Equal(int32(1), seen[id].Load(), "item %d", id)
	}
	require.True(n.exhausted())
}

func TestDeque_ConservationSingleThief(t *testing.T) {
	testConservation(t, 1, 100_000)
}

func TestDeque_ConservationFourThieves(t *testing.T) {
	testConservation(t, 4, 100_000)
}

// The owner keeps producing while N thieves steal and return; once the
// producer stops, draining must terminate.
func TestDeque_LivenessUnderContention(t *testing.T) {
	for _, thieves := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("thieves=%d", thieves), func(t *testing.T) {
			n := newNode[item](64, 0)
			var done atomic.Bool
			var consumed atomic.Int64
			var wg sync.WaitGroup
			for range thieves {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for !done.Load() {
						if s, _ := n.steal(); s != nil {
							consumed.Add(1)
							n.returnStolen()
						}
					}
				}()
			}

			const produced = 20_000
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				pushed := 0
				for pushed < produced {
					if push(t, n, pushed) {
						pushed++
						continue
					}
					if s, _ := n.take(); s != nil {
						consumed.Add(1)
					}
				}
				for {
					s, outstanding := n.take()
					if s != nil {
						consumed.Add(1)
						continue
					}
					if outstanding == 0 {
						return
					}
				}
			}()

			select {
			case <-finished:
			case <-time.After(30 * time.Second):
				t.Fatal("drain did not terminate")
			}
			done.Store(true)
			wg.Wait()
			require.Equal(t, int64(produced), consumed.Load())
		})
	}
}
