package workload

import (
	"slices"

	"github.com/Swind/go-forkjoin/core"
)

// DefaultSortCutoff is the slice length below which MergeSort sorts
// serially.
const DefaultSortCutoff = 2048

// MergeSort sorts Data in place using Scratch (same length) as merge
// buffer. Both halves are sorted as forked children.
type MergeSort struct {
	Data    []int64
	Scratch []int64
	Cutoff  int
}

// NewMergeSort prepares a root task for data.
func NewMergeSort(data []int64, cutoff int) MergeSort {
	if cutoff < 2 {
		cutoff = DefaultSortCutoff
	}
	return MergeSort{Data: data, Scratch: make([]int64, len(data)), Cutoff: cutoff}
}

func (t *MergeSort) Execute(f *core.Frame[MergeSort]) {
	n := len(t.Data)
	if n <= t.Cutoff {
		slices.Sort(t.Data)
		return
	}
	mid := n / 2
	f.Fork(MergeSort{Data: t.Data[:mid], Scratch: t.Scratch[:mid], Cutoff: t.Cutoff})
	f.Fork(MergeSort{Data: t.Data[mid:], Scratch: t.Scratch[mid:], Cutoff: t.Cutoff})
	f.Wait()
	merge(t.Scratch, t.Data[:mid], t.Data[mid:])
	copy(t.Data, t.Scratch)
}

func merge(dst, a, b []int64) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if b[j] < a[i] {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
